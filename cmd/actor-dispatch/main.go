// Package main is the entrypoint for actor-dispatch.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/morezero/actor-dispatch/internal/config"
	"github.com/morezero/actor-dispatch/internal/server"
	"github.com/morezero/actor-dispatch/pkg/commsutil"
	"github.com/morezero/actor-dispatch/pkg/db"
	"github.com/morezero/actor-dispatch/pkg/dispatcher"
	"github.com/morezero/actor-dispatch/pkg/hostkey"
	"github.com/morezero/actor-dispatch/pkg/transport"
)

// CLI invocations originate from this provider identity.
const (
	cliCapabilityID = "actor-dispatch:cli"
	cliBinding      = "default"
)

const usage = `Usage: actor-dispatch [command]
       actor-dispatch serve                               Start the actor host and HTTP gateway providers.
       actor-dispatch dispatch <actor> <operation> [payload]  Send one invocation and print the reply.
       actor-dispatch keygen                              Print a new host seed and public key.
       actor-dispatch migrate up                          Run audit log migrations.
       actor-dispatch migrate status                      Show migration status.
       actor-dispatch clear                               Truncate the invocation audit log.

Commands:
  serve           (default) Start serving actors listed in MANIFEST_FILE.
  dispatch        Payload "-" reads stdin. Exit status 2 for an application failure, 1 otherwise.
  keygen          Generate an nkeys server seed for HOST_SEED / HOST_SEED_FILE.
  migrate up      Run database migrations only.
  migrate status  Show current migration status.
  clear           Truncate invocation_log; schema preserved.

Environment: COMMS_URL, HOST_SEED, HOST_SEED_FILE, TRUSTED_ISSUERS, REQUEST_TIMEOUT, MANIFEST_FILE,
ENVELOPE_VERSIONS, DATABASE_URL (optional for serve), MIGRATION_PATH, HTTP_PORT, LOG_LEVEL.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "dispatch":
		if len(args) < 3 {
			log.Fatalf("actor-dispatch dispatch: require <actor> <operation> [payload]")
		}
		payload, err := readPayload(args[3:], os.Stdin)
		if err != nil {
			log.Fatalf("actor-dispatch dispatch: %v", err)
		}
		reply, err := runDispatch(args[1], args[2], payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "actor-dispatch dispatch: %v\n", err)
			os.Exit(exitCode(err))
		}
		os.Stdout.Write(reply)
		return
	case "keygen":
		if err := runKeygen(os.Stdout); err != nil {
			log.Fatalf("actor-dispatch keygen: %v", err)
		}
		return
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("actor-dispatch migrate: require subcommand (up, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("actor-dispatch migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("actor-dispatch migrate status: %v", err)
			}
		default:
			log.Fatalf("actor-dispatch migrate: unknown subcommand %q (use up, status)", sub)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("actor-dispatch clear: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("actor-dispatch: %v", err)
	}
}

// readPayload returns the optional payload argument; "-" reads r to EOF.
func readPayload(rest []string, r io.Reader) ([]byte, error) {
	if len(rest) == 0 {
		return nil, nil
	}
	if rest[0] == "-" {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	return []byte(rest[0]), nil
}

func exitCode(err error) int {
	if dispatcher.IsApplication(err) {
		return 2
	}
	return 1
}

func runDispatch(actorID, operation string, payload []byte) ([]byte, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDispatch(); err != nil {
		return nil, err
	}
	server.SetupLogging(cfg.LogLevel)

	kp, err := server.LoadSigner(cfg)
	if err != nil {
		return nil, err
	}
	defer kp.Wipe()

	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName+"-cli")
	if err != nil {
		return nil, fmt.Errorf("connect NATS: %w", err)
	}
	defer nc.Close()

	disp, err := dispatcher.New(dispatcher.NewParams{
		CapabilityID: cliCapabilityID,
		Binding:      cliBinding,
		Signer:       kp,
		Transport:    transport.NewCommsTransport(nc, &transport.CommsTransportOpts{Timeout: cfg.RequestTimeout}),
	})
	if err != nil {
		return nil, err
	}
	return disp.Dispatch(context.Background(), actorID, operation, payload)
}

func runKeygen(w io.Writer) error {
	kp, err := hostkey.Generate()
	if err != nil {
		return err
	}
	defer kp.Wipe()
	seed, err := kp.Seed()
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	_, err = fmt.Fprintf(w, "HOST_SEED=%s\nPUBLIC_KEY=%s\n", seed, pub)
	return err
}

func runMigrateUp() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	status, err := db.MigrationStatus(ctx, pool, cfg.MigrationPath)
	if err != nil {
		return err
	}
	fmt.Println(status)
	return nil
}

func runClear() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.ClearInvocationLog(ctx, pool); err != nil {
		return fmt.Errorf("clear invocation log: %w", err)
	}
	return nil
}
