package main

import (
	"encoding/hex"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/retrozk/ballotd/api"
	"github.com/retrozk/ballotd/ballot"
	"github.com/retrozk/ballotd/commitment"
	"github.com/retrozk/ballotd/config"
	"github.com/retrozk/ballotd/service"
	"github.com/retrozk/ballotd/storage"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"
)

const artifactDownloadTimeout = 10 * time.Minute

func main() {
	logLevel := flag.String("logLevel", "info", "log level (debug, info, warn, error)")
	skipArtifacts := flag.Bool("skipArtifacts", false, "skip downloading the verification artifacts")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal(err)
		}
		dataDir = filepath.Join(home, ".ballotd")
	}
	database, err := metadb.New(db.TypePebble, filepath.Join(dataDir, "db"))
	if err != nil {
		log.Fatal(err)
	}
	stg := storage.New(database)

	// The verification artifact set gates the routes that change ballot
	// state: without it drafts and publishes are refused, reads still work.
	artifacts := verificationArtifacts()
	publishReady := true
	if *skipArtifacts {
		publishReady = false
		log.Warnw("verification artifacts skipped, publish routes disabled")
	} else if err := artifacts.LoadAll(); err != nil {
		log.Infow("verification artifacts not cached, downloading", "reason", err.Error())
		if err := artifacts.DownloadAll(artifactDownloadTimeout); err != nil {
			publishReady = false
			log.Errorf("failed to download verification artifacts: %v", err)
		} else if err := artifacts.LoadAll(); err != nil {
			publishReady = false
			log.Errorf("failed to load verification artifacts: %v", err)
		}
	}

	prover, err := commitment.New(cfg.ProverURL, cfg.CommitmentBytes)
	if err != nil {
		log.Fatal(err)
	}
	prover.SetPollInterval(cfg.PollInterval)

	ballots := service.NewBallotService(stg, prover,
		service.NewStaticAttestations(cfg.ApprovedVoters, cfg.ApprovedProjects),
		service.BallotConfig{
			ChainID:      cfg.ChainID,
			VotingEndsAt: cfg.VotingEndsAt,
			Policy:       ballot.Policy{MaxTotal: cfg.MaxTotalVotes, MaxProject: cfg.MaxProjectVotes},
			CircuitWidth: cfg.CircuitWidth,
		})

	if _, err := api.New(&api.APIConfig{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Ballots:      ballots,
		PublishReady: publishReady,
	}); err != nil {
		log.Fatal(err)
	}
	log.Infow("ballotd started", "host", cfg.Host, "port", cfg.Port,
		"chainId", cfg.ChainID, "votingEndsAt", cfg.VotingEndsAt, "publishReady", publishReady)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
	stg.Close()
}

// verificationArtifacts builds the artifact set from the pinned URL and hash
// constants.
func verificationArtifacts() *service.VerificationArtifacts {
	return service.NewVerificationArtifacts(
		&service.Artifact{
			RemoteURL: config.VerificationKeyURL,
			Hash:      hexHash(config.VerificationKeyHash),
		},
		&service.Artifact{
			RemoteURL: config.CircuitSettingsURL,
			Hash:      hexHash(config.CircuitSettingsHash),
		},
		&service.Artifact{
			RemoteURL: config.KzgSRSURL,
			Hash:      hexHash(config.KzgSRSHash),
		},
	)
}

func hexHash(s string) []byte {
	h, err := hex.DecodeString(s)
	if err != nil {
		log.Fatalf("invalid artifact hash %q: %v", s, err)
	}
	return h
}
