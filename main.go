package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mrlokans/datakit/internal/config"
	"github.com/mrlokans/datakit/internal/dao"
	"github.com/mrlokans/datakit/internal/database"
	"github.com/mrlokans/datakit/internal/datasource"
	"github.com/mrlokans/datakit/internal/entities"
	"github.com/mrlokans/datakit/internal/httpclient"
	"github.com/mrlokans/datakit/internal/mediator"
	"github.com/mrlokans/datakit/internal/result"
	"github.com/mrlokans/datakit/internal/viacep"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "lookup":
		if len(args) != 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s lookup <cep>\n", os.Args[0])
			os.Exit(1)
		}
		if err := runLookup(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "version":
		fmt.Printf("datakit %s (%s)\n", Version, Commit)

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runLookup performs a cache-then-network address lookup: the cached row is
// printed first (if any), then the fresh remote value, which is persisted
// back into the cache.
func runLookup(cep string) error {
	cfg := config.NewConfig()

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := dao.NewRepository[entities.Address](db.DB)
	api := viacep.NewClient(httpclient.New(httpclient.Config{
		BaseURL:    cfg.ViaCEP.BaseURL,
		Timeout:    cfg.HTTP.Timeout,
		MaxRetries: cfg.HTTP.MaxRetries,
		RetryDelay: cfg.HTTP.RetryDelay,
	}))

	normalized := viacep.Normalize(cep)

	med := mediator.New(mediator.Config[entities.Address, viacep.AddressDTO, entities.Address]{
		Local: datasource.NewLocal(
			func(ctx context.Context) (*entities.Address, error) {
				return repo.Lookup(ctx, "cep = ?", normalized)
			},
			func(a entities.Address) (entities.Address, error) { return a, nil },
		),
		Remote: datasource.NewRemote(
			func(ctx context.Context) (datasource.Envelope[viacep.AddressDTO], error) {
				return api.Lookup(ctx, cep)
			},
			func(env datasource.Envelope[viacep.AddressDTO]) (entities.Address, error) {
				if env.Value == nil {
					return entities.Address{}, fmt.Errorf("empty response body for CEP %s", cep)
				}
				return viacep.ToEntity(*env.Value), nil
			},
		),
		Save: func(ctx context.Context, env datasource.Envelope[viacep.AddressDTO]) error {
			if env.Value == nil {
				return nil
			}
			addr := viacep.ToEntity(*env.Value)
			return repo.Upsert(ctx, &addr)
		},
		OnSaveError: saveErrorPolicy(cfg.Mediator.SaveErrorPolicy),
	})

	origins := []string{"cache", "network"}
	i := 0
	for r := range med.Execute(context.Background()).All() {
		origin := "network"
		if i < len(origins) {
			origin = origins[i]
		}
		i++

		switch r := r.(type) {
		case result.Data[entities.Address]:
			if r.Value == nil {
				fmt.Printf("[%s] no address on record\n", origin)
				continue
			}
			a := r.Value
			fmt.Printf("[%s] %s: %s, %s, %s - %s\n", origin, a.CEP, a.Street, a.District, a.City, a.State)
		case result.Failure[entities.Address]:
			fmt.Printf("[%s] lookup failed (%s): %s\n", origin, r.Kind, r.Message)
			if r.Retryable() {
				fmt.Printf("[%s] the failure is transient, try again later\n", origin)
			}
		}
	}

	return nil
}

func saveErrorPolicy(name string) mediator.SaveErrorPolicy {
	switch name {
	case "log":
		return mediator.LogSaveErrors
	case "ignore":
		return mediator.IgnoreSaveErrors
	default:
		return mediator.SurfaceSaveErrors
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  lookup <cep>  Look up a Brazilian address, cache first then network\n")
	fmt.Fprintf(os.Stderr, "  version       Print version information\n")
}
