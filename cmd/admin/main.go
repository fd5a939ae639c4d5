// Command admin is the operator CLI. It talks to the database and redis
// directly and works while the server is down.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"roomchat/backend/internal/storage"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

Commands:
  rooms          list rooms with their flags and member counts
  users          list users with their status and room counts
  close <room>   close a room
  open <room>    reopen a closed room
  tail           print room events as they are published`

// adminConfig is the subset of the server settings the CLI needs. The
// server's JWT secret is not required here.
type adminConfig struct {
	DatabaseDSN   string `env:"DATABASE_DSN"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "admin:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string) error {
	var cfg adminConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	switch command {
	case "rooms":
		p, err := openDB(cfg)
		if err != nil {
			return err
		}
		return listRooms(ctx, p)
	case "users":
		p, err := openDB(cfg)
		if err != nil {
			return err
		}
		return listUsers(ctx, p)
	case "close", "open":
		if len(args) != 1 {
			return fmt.Errorf("usage: admin %s <room>", command)
		}
		p, err := openDB(cfg)
		if err != nil {
			return err
		}
		if err := p.SetRoomClosed(ctx, args[0], command == "close"); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("room %q not found", args[0])
			}
			return err
		}
		state := "open"
		if command == "close" {
			state = "closed"
		}
		fmt.Printf("Room %s is now %s. Restart the server to pick up the change.\n", args[0], state)
		return nil
	case "tail":
		return tail(ctx, cfg)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
}

func openDB(cfg adminConfig) (*storage.GormPersister, error) {
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("DATABASE_DSN is not set")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return storage.NewGormPersister(db), nil
}

func listRooms(ctx context.Context, p *storage.GormPersister) error {
	rows, err := p.ListRoomSummaries(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPRIVATE\tCLOSED\tMEMBERS")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%t\t%t\t%d\n", r.Name, r.Private, r.Closed, r.Members)
	}
	return w.Flush()
}

func listUsers(ctx context.Context, p *storage.GormPersister) error {
	rows, err := p.ListUserSummaries(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tROOMS")
	for _, u := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\n", u.Name, u.Status, u.Rooms)
	}
	return w.Flush()
}

// tail prints every room event until interrupted.
func tail(ctx context.Context, cfg adminConfig) error {
	if cfg.RedisAddr == "" {
		return errors.New("REDIS_ADDR is not set")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	sub := storage.SubscribeToAllRooms(ctx, rdb)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fmt.Printf("%s %s\n", msg.Channel, msg.Payload)
		}
	}
}
