package service

import (
	"context"
	"strings"
)

// AttestationService resolves which voters may publish and which projects can
// receive votes. Implementations may query an external attestation registry;
// the ballot service only depends on this interface.
type AttestationService interface {
	// ApprovedVoter reports whether the voter holds a valid approval.
	ApprovedVoter(ctx context.Context, voterID string) (bool, error)
	// CountApprovedProjects returns the number of approved projects.
	CountApprovedProjects(ctx context.Context) (int, error)
	// ApprovedProjectIDs returns the ids of all approved projects.
	ApprovedProjectIDs(ctx context.Context) ([]string, error)
}

// StaticAttestations is an AttestationService backed by fixed lists, used by
// the server when the approved sets are provided via configuration, and by
// tests.
type StaticAttestations struct {
	voters   map[string]bool
	projects []string
}

// NewStaticAttestations builds a StaticAttestations from the given voter
// addresses and project ids. Voter addresses are matched case-insensitively.
func NewStaticAttestations(voters, projects []string) *StaticAttestations {
	vm := make(map[string]bool, len(voters))
	for _, v := range voters {
		vm[strings.ToLower(v)] = true
	}
	return &StaticAttestations{voters: vm, projects: projects}
}

func (s *StaticAttestations) ApprovedVoter(_ context.Context, voterID string) (bool, error) {
	return s.voters[strings.ToLower(voterID)], nil
}

func (s *StaticAttestations) CountApprovedProjects(_ context.Context) (int, error) {
	return len(s.projects), nil
}

func (s *StaticAttestations) ApprovedProjectIDs(_ context.Context) ([]string, error) {
	ids := make([]string, len(s.projects))
	copy(ids, s.projects)
	return ids, nil
}
