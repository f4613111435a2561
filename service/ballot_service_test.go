package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/retrozk/ballotd/ballot"
	"github.com/retrozk/ballotd/commitment"
	"github.com/retrozk/ballotd/crypto/ethereum"
	"github.com/retrozk/ballotd/storage"
	"github.com/retrozk/ballotd/types"
	"go.vocdoni.io/dvote/db/metadb"
)

// fakeCommitments satisfies CommitmentClient without a proving service.
type fakeCommitments struct {
	commitment string
	err        error
	vectors    [][]int64
	mu         sync.Mutex
}

func (f *fakeCommitments) Commit(_ context.Context, vector []int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.vectors = append(f.vectors, vector)
	return f.commitment, nil
}

type testEnv struct {
	svc    *BallotService
	stg    *storage.Storage
	prover *fakeCommitments
	signer *ethereum.SignKeys
	voter  string
}

const testChainID = int64(1337)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	signer := ethereum.NewSignKeys()
	if err := signer.Generate(); err != nil {
		t.Fatal(err)
	}
	voter := signer.AddressString()

	stg := storage.New(metadb.NewTest(t))
	prover := &fakeCommitments{commitment: "0xdeadbeef"}
	attestations := NewStaticAttestations(
		[]string{voter},
		[]string{"P1", "P2", "P3"},
	)
	svc := NewBallotService(stg, prover, attestations, BallotConfig{
		ChainID:      testChainID,
		VotingEndsAt: time.Now().Add(time.Hour),
		Policy:       ballot.Policy{MaxTotal: 100, MaxProject: 50},
		CircuitWidth: 8,
	})
	return &testEnv{svc: svc, stg: stg, prover: prover, signer: signer, voter: voter}
}

// publishRequest builds a fully signed publish request over the stored votes,
// the way the wallet client does.
func publishRequest(t *testing.T, env *testEnv, votes []types.Vote, kzgCommitment string) *types.PublishRequest {
	t.Helper()
	digest, err := ballot.HashVotes(votes)
	if err != nil {
		t.Fatal(err)
	}
	msg := types.BallotMessage{
		TotalVotes:   new(types.BigInt).SetUint64(uint64(ballot.SumVotes(votes))),
		ProjectCount: new(types.BigInt).SetUint64(uint64(len(votes))),
		HashedVotes:  digest.String(),
	}
	sig, err := env.signer.SignTypedData(ethereum.BallotTypedData(testChainID, msg))
	if err != nil {
		t.Fatal(err)
	}
	kzgMsg := types.KzgMessage{KzgCommitment: kzgCommitment}
	kzgSig, err := env.signer.SignTypedData(ethereum.KzgTypedData(testChainID, kzgMsg))
	if err != nil {
		t.Fatal(err)
	}
	return &types.PublishRequest{
		ChainID:      testChainID,
		Signature:    sig,
		Message:      msg,
		KzgSignature: kzgSig,
		KzgMessage:   kzgMsg,
	}
}

func TestBallotEmptyDraft(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)

	b, err := env.svc.Ballot(context.Background(), env.voter)
	c.Assert(err, qt.IsNil)
	c.Assert(b.Votes, qt.HasLen, 0)
	c.Assert(b.Published(), qt.IsFalse)
}

func TestSaveMergesAndStoresCommitment(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	b, err := env.svc.Save(ctx, env.voter, []types.Vote{
		{ProjectID: "P1", Amount: 5},
		{ProjectID: "P2", Amount: 7},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(b.KzgCommitment, qt.Equals, "0xdeadbeef")

	// second save overwrites P1 and appends P3, keeping first-seen order
	b, err = env.svc.Save(ctx, env.voter, []types.Vote{
		{ProjectID: "P3", Amount: 2},
		{ProjectID: "P1", Amount: 9},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(b.Votes, qt.DeepEquals, []types.Vote{
		{ProjectID: "P1", Amount: 9},
		{ProjectID: "P2", Amount: 7},
		{ProjectID: "P3", Amount: 2},
	})

	// canonical vector over lexicographic slots, sentinel padded to width 8
	c.Assert(env.prover.vectors[1], qt.DeepEquals, []int64{9, 7, 2, -1, -1, -1, -1, -1})
}

func TestSaveRejectsInvalidVotes(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	// a negative amount must not reach the encoder: it would read as the
	// no-vote sentinel in the vector and shrink the budget sum under the cap
	_, err := env.svc.Save(ctx, env.voter, []types.Vote{
		{ProjectID: "P1", Amount: -1},
		{ProjectID: "P2", Amount: 50},
		{ProjectID: "P3", Amount: 50},
	})
	c.Assert(err, qt.ErrorIs, ballot.ErrInvalidVote)

	_, err = env.svc.Save(ctx, env.voter, []types.Vote{{ProjectID: "", Amount: 5}})
	c.Assert(err, qt.ErrorIs, ballot.ErrInvalidVote)

	// nothing persisted and no proving job submitted
	c.Assert(env.prover.vectors, qt.HasLen, 0)
	_, err = env.stg.Ballot(env.voter)
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)
}

func TestSaveUnknownProject(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)

	_, err := env.svc.Save(context.Background(), env.voter, []types.Vote{{ProjectID: "P9", Amount: 1}})
	c.Assert(err, qt.ErrorIs, ballot.ErrUnknownProject)
	_, err = env.stg.Ballot(env.voter)
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)
}

func TestSaveCommitmentFailureLeavesNothing(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	env.prover.err = commitment.ErrService

	_, err := env.svc.Save(context.Background(), env.voter, []types.Vote{{ProjectID: "P1", Amount: 5}})
	c.Assert(err, qt.ErrorIs, commitment.ErrService)

	// nothing persisted: no votes without a commitment
	_, err = env.stg.Ballot(env.voter)
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)
}

func TestSaveAfterWindowClosed(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	env.svc.SetNow(func() time.Time { return time.Now().Add(2 * time.Hour) })

	_, err := env.svc.Save(context.Background(), env.voter, []types.Vote{{ProjectID: "P1", Amount: 5}})
	c.Assert(err, qt.ErrorIs, ErrVotingClosed)
	// the window is checked before any external call
	c.Assert(env.prover.vectors, qt.HasLen, 0)
}

func TestPublishHappyPath(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	votes := []types.Vote{{ProjectID: "P1", Amount: 5}, {ProjectID: "P2", Amount: 7}}
	saved, err := env.svc.Save(ctx, env.voter, votes)
	c.Assert(err, qt.IsNil)

	req := publishRequest(t, env, saved.Votes, saved.KzgCommitment)
	published, err := env.svc.Publish(ctx, env.voter, req)
	c.Assert(err, qt.IsNil)
	c.Assert(published.Published(), qt.IsTrue)
	c.Assert(published.Signature, qt.DeepEquals, req.Signature)

	// replayed request fails, record unchanged
	_, err = env.svc.Publish(ctx, env.voter, req)
	c.Assert(err, qt.ErrorIs, storage.ErrAlreadyPublished)

	// saving after publish is refused too
	_, err = env.svc.Save(ctx, env.voter, []types.Vote{{ProjectID: "P3", Amount: 1}})
	c.Assert(err, qt.ErrorIs, storage.ErrAlreadyPublished)
}

func TestPublishWithoutDraft(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)

	req := publishRequest(t, env, nil, "0xdeadbeef")
	_, err := env.svc.Publish(context.Background(), env.voter, req)
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)
}

func TestPublishPolicyViolation(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	// over the per-project cap of 50; saving is allowed, publishing is not
	saved, err := env.svc.Save(ctx, env.voter, []types.Vote{{ProjectID: "P1", Amount: 60}})
	c.Assert(err, qt.IsNil)

	req := publishRequest(t, env, saved.Votes, saved.KzgCommitment)
	_, err = env.svc.Publish(ctx, env.voter, req)
	c.Assert(err, qt.ErrorIs, ballot.ErrPolicyViolation)

	b, err := env.stg.Ballot(env.voter)
	c.Assert(err, qt.IsNil)
	c.Assert(b.Published(), qt.IsFalse)
}

func TestPublishUnauthorizedVoter(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	outsider := ethereum.NewSignKeys()
	c.Assert(outsider.Generate(), qt.IsNil)
	env.signer = outsider
	env.voter = outsider.AddressString()

	saved, err := env.svc.Save(ctx, env.voter, []types.Vote{{ProjectID: "P1", Amount: 5}})
	c.Assert(err, qt.IsNil)

	req := publishRequest(t, env, saved.Votes, saved.KzgCommitment)
	_, err = env.svc.Publish(ctx, env.voter, req)
	c.Assert(err, qt.ErrorIs, ErrUnauthorizedVoter)
}

func TestPublishHashMismatch(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	saved, err := env.svc.Save(ctx, env.voter, []types.Vote{{ProjectID: "P1", Amount: 5}})
	c.Assert(err, qt.IsNil)

	// signed over votes that are not the stored ones
	req := publishRequest(t, env, []types.Vote{{ProjectID: "P1", Amount: 6}}, saved.KzgCommitment)
	_, err = env.svc.Publish(ctx, env.voter, req)
	c.Assert(err, qt.ErrorIs, ErrHashMismatch)
}

func TestPublishSignatureFailures(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	saved, err := env.svc.Save(ctx, env.voter, []types.Vote{{ProjectID: "P1", Amount: 5}})
	c.Assert(err, qt.IsNil)

	stranger := ethereum.NewSignKeys()
	c.Assert(stranger.Generate(), qt.IsNil)

	// ballot signature from another key
	req := publishRequest(t, env, saved.Votes, saved.KzgCommitment)
	strangerSig, err := stranger.SignTypedData(ethereum.BallotTypedData(testChainID, req.Message))
	c.Assert(err, qt.IsNil)
	req.Signature = strangerSig
	_, err = env.svc.Publish(ctx, env.voter, req)
	c.Assert(err, qt.ErrorIs, ErrBallotSignature)

	// kzg signature from another key, ballot signature valid
	req = publishRequest(t, env, saved.Votes, saved.KzgCommitment)
	strangerKzg, err := stranger.SignTypedData(ethereum.KzgTypedData(testChainID, req.KzgMessage))
	c.Assert(err, qt.IsNil)
	req.KzgSignature = strangerKzg
	_, err = env.svc.Publish(ctx, env.voter, req)
	c.Assert(err, qt.ErrorIs, ErrCommitmentSignature)

	// truncated signature
	req = publishRequest(t, env, saved.Votes, saved.KzgCommitment)
	req.Signature = req.Signature[:32]
	_, err = env.svc.Publish(ctx, env.voter, req)
	c.Assert(err, qt.ErrorIs, ErrBallotSignature)
}

func TestPublishAfterWindowClosed(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	saved, err := env.svc.Save(ctx, env.voter, []types.Vote{{ProjectID: "P1", Amount: 5}})
	c.Assert(err, qt.IsNil)

	env.svc.SetNow(func() time.Time { return time.Now().Add(2 * time.Hour) })
	req := publishRequest(t, env, saved.Votes, saved.KzgCommitment)
	_, err = env.svc.Publish(ctx, env.voter, req)
	c.Assert(err, qt.ErrorIs, ErrVotingClosed)
}

func TestPublishConcurrentSingleWinner(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	saved, err := env.svc.Save(ctx, env.voter, []types.Vote{{ProjectID: "P1", Amount: 5}})
	c.Assert(err, qt.IsNil)
	req := publishRequest(t, env, saved.Votes, saved.KzgCommitment)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Publish(ctx, env.voter, req)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			c.Assert(err, qt.ErrorIs, storage.ErrAlreadyPublished)
		}
	}
	c.Assert(won, qt.Equals, 1)
}

// TestEndToEndWithProvingService runs the full flow against an HTTP proving
// service stub and the real commitment client.
func TestEndToEndWithProvingService(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	jobID := uuid.NewString()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /recipe", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode(map[string]any{"id": jobID, "was_already_scheduled": false}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("GET /recipe/{id}", func(w http.ResponseWriter, r *http.Request) {
		proof := make([]string, 64)
		for i := range proof {
			proof[i] = fmt.Sprintf("%d", i+1)
		}
		out := fmt.Sprintf(`{"proof":[%s]}`, strings.Join(proof, ","))
		if err := json.NewEncoder(w).Encode([]map[string]string{{"output": out}}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := commitment.New(srv.URL, types.DefaultCommitmentBytes)
	c.Assert(err, qt.IsNil)
	client.SetPollInterval(5 * time.Millisecond)
	client.SetMaxPollTime(time.Second)

	signer := ethereum.NewSignKeys()
	c.Assert(signer.Generate(), qt.IsNil)
	voter := signer.AddressString()

	stg := storage.New(metadb.NewTest(t))
	svc := NewBallotService(stg, client, NewStaticAttestations([]string{voter}, []string{"P1", "P2"}), BallotConfig{
		ChainID:      testChainID,
		VotingEndsAt: time.Now().Add(time.Hour),
		Policy:       ballot.Policy{MaxTotal: 100, MaxProject: 50},
		CircuitWidth: 8,
	})

	saved, err := svc.Save(ctx, voter, []types.Vote{{ProjectID: "P1", Amount: 5}})
	c.Assert(err, qt.IsNil)
	c.Assert(saved.KzgCommitment, qt.Equals,
		"0x403f3e3d3c3b3a393837363534333231302f2e2d2c2b2a292827262524232221201f1e1d1c1b1a191817161514131211100f0e0d0c0b0a090807060504030201")

	env := &testEnv{signer: signer, voter: voter}
	req := publishRequest(t, env, saved.Votes, saved.KzgCommitment)
	published, err := svc.Publish(ctx, voter, req)
	c.Assert(err, qt.IsNil)
	c.Assert(published.Published(), qt.IsTrue)

	_, err = svc.Publish(ctx, voter, req)
	c.Assert(err, qt.ErrorIs, storage.ErrAlreadyPublished)
}
