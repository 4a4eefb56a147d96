package flows

import (
	"context"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/keypair"
)

// IssueFailureKind classifies failures while minting a fresh credential.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureKeyPair
	IssueFailureSign
	IssueFailureStore
)

// IssueResult carries the token pair of a freshly created credential.
type IssueResult struct {
	Failure IssueFailureKind
	Err     error
	KeyPair keypair.KeyPair
	Tokens  jwt.TokenPair
}

// IssueDeps captures credential issuance dependencies.
type IssueDeps struct {
	KeyPairs keypair.Provider
	SignPair PairSigner
	Store    CredentialWriter
}

// RunIssue generates and validates a new key pair, signs a pair with it and
// replaces whatever credential the user had.
func RunIssue(ctx context.Context, uc jwt.UserClaims, deps IssueDeps) IssueResult {
	kp, err := deps.KeyPairs.Generate()
	if err != nil {
		return IssueResult{Failure: IssueFailureKeyPair, Err: err}
	}
	// Providers are pluggable; never persist a pair whose halves disagree.
	if err := keypair.Validate(kp); err != nil {
		return IssueResult{Failure: IssueFailureKeyPair, Err: err}
	}

	tokens, err := deps.SignPair(uc, kp.PrivateKey)
	if err != nil {
		return IssueResult{Failure: IssueFailureSign, Err: err}
	}

	if err := deps.Store.Create(ctx, uc.UserID, kp.PublicKey, kp.PrivateKey, tokens.RefreshToken); err != nil {
		return IssueResult{Failure: IssueFailureStore, Err: err}
	}

	return IssueResult{KeyPair: kp, Tokens: tokens}
}
