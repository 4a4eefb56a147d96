package goSession

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"

	"github.com/MrEthical07/goSession/internal/flows"
)

const (
	minPasswordLength = 10
	maxEmailLength    = 254
	maxNameLength     = 200
)

func (e *Engine) validateSignUp(in SignUpInput) error {
	maxPassword := e.config.Password.MaxPasswordBytes
	if maxPassword <= 0 {
		maxPassword = 1024
	}
	allowed := e.config.Account.AllowedRoles

	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(3, maxEmailLength), is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(minPasswordLength, maxPassword)),
		validation.Field(&in.Name, validation.Length(0, maxNameLength)),
		validation.Field(&in.Roles, validation.By(func(value interface{}) error {
			roles, _ := value.([]string)
			for _, r := range roles {
				if !containsRole(allowed, r) {
					return fmt.Errorf("role %q is not allowed", r)
				}
			}
			return nil
		})),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// SignUp creates a user and its first credential: a fresh key pair and a
// token pair signed with it. It fails with ErrInvalidInput or
// ErrDuplicateEmail before any write.
func (e *Engine) SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	in.Email = normalizeEmail(in.Email)
	if err := e.validateSignUp(in); err != nil {
		e.metricInc(MetricSignUpFailure)
		e.emitAudit(ctx, auditEventSignUpFailure, false, "", err, nil)
		return nil, err
	}

	roles := in.Roles
	if len(roles) == 0 {
		roles = e.config.Account.DefaultRoles
	}
	roles = append([]string(nil), roles...)

	var created UserRecord
	deps := e.flows.SignUp
	deps.CreateUser = func(ctx context.Context, passwordHash string) (flows.UserIdentity, error) {
		rec, err := e.users.Create(ctx, CreateUserInput{
			Email:        in.Email,
			Name:         in.Name,
			PasswordHash: passwordHash,
			Roles:        roles,
		})
		if err != nil {
			return flows.UserIdentity{}, err
		}
		created = rec
		return flows.UserIdentity{ID: rec.ID, Email: rec.Email, PasswordHash: rec.PasswordHash}, nil
	}

	res := flows.RunSignUp(ctx, in.Email, in.Password, deps)
	if res.Failure != flows.SignUpFailureNone {
		err := e.signUpError(res)
		if res.Failure == flows.SignUpFailureDuplicate {
			e.metricInc(MetricSignUpDuplicate)
		} else {
			e.metricInc(MetricSignUpFailure)
		}
		e.emitAudit(ctx, auditEventSignUpFailure, false, res.User.ID, err, nil)
		return nil, err
	}

	e.metricInc(MetricSignUpSuccess)
	e.metricInc(MetricKeyPairGenerated)
	e.emitAudit(ctx, auditEventSignUpSuccess, true, created.ID, nil, nil)

	return &SignUpResult{User: created, Tokens: res.Tokens}, nil
}

func (e *Engine) signUpError(res flows.SignUpResult) error {
	switch res.Failure {
	case flows.SignUpFailureDuplicate:
		return ErrDuplicateEmail
	case flows.SignUpFailureHash:
		return fmt.Errorf("%w: %v", ErrInvalidInput, res.Err)
	case flows.SignUpFailureLookup, flows.SignUpFailureCreateUser:
		e.logger.Error("user directory failure during sign-up", zap.Error(res.Err))
		return storeUnavailable(res.Err)
	case flows.SignUpFailureIssue:
		// The user exists without a credential; the next login issues one.
		e.logger.Error("credential issuance failed after sign-up",
			zap.String("user_id", res.User.ID), zap.Error(res.Err))
		return e.issueError(res.Issue, res.Err)
	default:
		return res.Err
	}
}

func (e *Engine) issueError(kind flows.IssueFailureKind, err error) error {
	switch kind {
	case flows.IssueFailureStore:
		return storeUnavailable(err)
	case flows.IssueFailureKeyPair:
		return fmt.Errorf("generate key pair: %w", err)
	case flows.IssueFailureSign:
		return fmt.Errorf("sign token pair: %w", err)
	default:
		return errors.Join(ErrEngineNotReady, err)
	}
}
