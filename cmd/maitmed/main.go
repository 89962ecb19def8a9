// File: cmd/maitmed/main.go
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/whaleden-mjtd/maitme-contracts-staking/api"
	"github.com/whaleden-mjtd/maitme-contracts-staking/config"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/account"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/tiers"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/vault"
	"github.com/whaleden-mjtd/maitme-contracts-staking/storage"
)

// buildSchedule converts the configured tier table into the fixed band array
func buildSchedule(cfg *config.Config) (*tiers.Schedule, error) {
	var bands [tiers.TierCount]tiers.Band
	for i, tc := range cfg.Tiers {
		bands[i] = tiers.Band{
			Start: tc.StartSeconds,
			End:   tc.EndSeconds,
			Rate:  tc.Rate,
		}
	}
	return tiers.NewSchedule(bands)
}

func main() {
	var configPath = flag.String("config", "", "Path to YAML config file (default: built-in defaults)")
	var dataDir = flag.String("data", "", "Data directory (overrides config)")
	var listenAddr = flag.String("listen", "", "API listen address (overrides config)")
	var adminAddr = flag.String("admin", "", "Admin address (overrides config)")
	var snapshotEvery = flag.Duration("snapshot-interval", 5*time.Minute, "Interval between background snapshots")

	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *listenAddr != "" {
		cfg.API.ListenAddr = *listenAddr
	}
	if *adminAddr != "" {
		cfg.Vault.AdminAddress = *adminAddr
	}

	schedule, err := buildSchedule(cfg)
	if err != nil {
		log.Fatalf("Invalid tier schedule: %v", err)
	}

	store, err := storage.NewBadgerStorage(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open storage at %s: %v", cfg.DataDir, err)
	}
	defer store.Close()

	vaultStore := storage.NewVaultStore(store)

	var opts []vault.Option
	if cfg.Vault.AdminAddress != "" {
		admin, err := account.Normalize(cfg.Vault.AdminAddress)
		if err != nil {
			log.Fatalf("Invalid admin address %s: %v", cfg.Vault.AdminAddress, err)
		}
		opts = append(opts, vault.WithAuthorizer(func(addr string) bool {
			return addr == admin
		}))
	}

	v, err := vault.NewVault(cfg.Vault, schedule, vault.NopCustodian{}, opts...)
	if err != nil {
		log.Fatalf("Failed to build vault: %v", err)
	}

	snap, err := vaultStore.LoadSnapshot()
	switch {
	case err == nil:
		if err := v.Restore(snap); err != nil {
			log.Fatalf("Failed to restore vault state: %v", err)
		}
		log.Printf("Restored vault: %d accounts, total staked %d",
			len(snap.Accounts), snap.TotalStaked)
	case err == storage.ErrKeyNotFound:
		log.Printf("No persisted state, starting fresh")
	default:
		log.Fatalf("Failed to load vault state: %v", err)
	}

	server := api.NewServer(v, cfg.API)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server error: %v", err)
		}
	}()

	// Background snapshots plus one on shutdown
	ticker := time.NewTicker(*snapshotEvery)
	defer ticker.Stop()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	log.Printf("Vault node %s running, data in %s", cfg.NodeID, cfg.DataDir)

	for {
		select {
		case <-ticker.C:
			if err := vaultStore.SaveSnapshot(v.Snapshot()); err != nil {
				log.Printf("Snapshot failed: %v", err)
			}
		case sig := <-sigs:
			log.Printf("Received %v, saving final snapshot", sig)
			if err := vaultStore.SaveSnapshot(v.Snapshot()); err != nil {
				log.Printf("Final snapshot failed: %v", err)
			}
			if err := server.Stop(); err != nil {
				log.Printf("API server stop: %v", err)
			}
			return
		}
	}
}
