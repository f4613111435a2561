package ethereum

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/retrozk/ballotd/types"
)

// Two independent typed-data domains bind the wallet identity to the publish
// request: "Ballot" commits to the vote digest and counts, "KzgCommitment"
// commits to the commitment string. The field order below is part of the wire
// contract; verification is order-sensitive.
const (
	BallotPrimaryType = "Ballot"
	KzgPrimaryType    = "KzgCommitment"

	ballotDomainName = "Sign votes"
	kzgDomainName    = "Signed KZG Commitment"
	domainVersion    = "1"
)

// ErrNoSignKeys is returned when signing is requested on an uninitialized
// keypair.
var ErrNoSignKeys = errors.New("no private key available")

func eip712Domain(name string, chainID int64) (apitypes.TypedDataDomain, []apitypes.Type) {
	return apitypes.TypedDataDomain{
			Name:    name,
			Version: domainVersion,
			ChainId: math.NewHexOrDecimal256(chainID),
		}, []apitypes.Type{
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
		}
}

// BallotTypedData builds the typed data for the "Ballot" message.
func BallotTypedData(chainID int64, msg types.BallotMessage) apitypes.TypedData {
	domain, domainType := eip712Domain(ballotDomainName, chainID)
	return apitypes.TypedData{
		PrimaryType: BallotPrimaryType,
		Domain:      domain,
		Types: apitypes.Types{
			"EIP712Domain": domainType,
			BallotPrimaryType: []apitypes.Type{
				{Name: "total_votes", Type: "uint256"},
				{Name: "project_count", Type: "uint256"},
				{Name: "hashed_votes", Type: "string"},
			},
		},
		Message: apitypes.TypedDataMessage{
			"total_votes":   (*math.HexOrDecimal256)(msg.TotalVotes.MathBigInt()),
			"project_count": (*math.HexOrDecimal256)(msg.ProjectCount.MathBigInt()),
			"hashed_votes":  msg.HashedVotes,
		},
	}
}

// KzgTypedData builds the typed data for the "KzgCommitment" message.
func KzgTypedData(chainID int64, msg types.KzgMessage) apitypes.TypedData {
	domain, domainType := eip712Domain(kzgDomainName, chainID)
	return apitypes.TypedData{
		PrimaryType: KzgPrimaryType,
		Domain:      domain,
		Types: apitypes.Types{
			"EIP712Domain": domainType,
			KzgPrimaryType: []apitypes.Type{
				{Name: "kzg_commitment", Type: "string"},
			},
		},
		Message: apitypes.TypedDataMessage{
			"kzg_commitment": msg.KzgCommitment,
		},
	}
}

// VerifyTypedData checks that signature over the typed data recovers to the
// claimed address. It only confirms the signer committed to the presented
// values; their correctness is enforced elsewhere.
func VerifyTypedData(td apitypes.TypedData, signature []byte, address common.Address) (bool, error) {
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return false, fmt.Errorf("hash typed data: %w", err)
	}
	pub, err := recoverPubkey(hash, signature)
	if err != nil {
		return false, err
	}
	return ethcrypto.PubkeyToAddress(*pub) == address, nil
}

// SignTypedData signs the typed data with k, returning a signature in the
// wallet convention (v in {27, 28}).
func (k *SignKeys) SignTypedData(td apitypes.TypedData) ([]byte, error) {
	if k.Private.D == nil {
		return nil, ErrNoSignKeys
	}
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	sig, err := ethcrypto.Sign(hash, &k.Private)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}
