package authcore

import (
	"context"
	"errors"

	"authcore/internal"
)

// challengeMethod is the single capability surface of an MFA method: produce
// a challenge and validate a response. Dispatch happens once at the engine
// boundary; nothing downstream branches on the method tag again.
type challengeMethod interface {
	// begin produces enrollment material and mutates the pending profile.
	begin(ctx context.Context, e *Engine, profile *MFAProfile) (*MFAEnrollment, error)
	// send issues a fresh transient challenge where the method needs one.
	send(ctx context.Context, e *Engine, profile *MFAProfile, purpose string) error
	// validate checks a presented code. It reports invalid codes as
	// (false, nil); errors are backend failures only.
	validate(ctx context.Context, e *Engine, profile *MFAProfile, purpose, code string) (bool, error)
}

func (e *Engine) methodFor(method MFAMethod) (challengeMethod, error) {
	switch method {
	case MethodTOTP:
		return totpMethod{}, nil
	case MethodSMS:
		return codeMethod{channel: ChannelSMS}, nil
	case MethodEmail:
		return codeMethod{channel: ChannelEmail}, nil
	default:
		return nil, ErrMFAMethodUnknown
	}
}

// totpMethod keeps a persistent shared secret on the profile; validation is
// pure time-window arithmetic against the injected clock.
type totpMethod struct{}

func (totpMethod) begin(_ context.Context, e *Engine, profile *MFAProfile) (*MFAEnrollment, error) {
	secret, err := internal.NewTOTPSecret()
	if err != nil {
		return nil, err
	}

	profile.Secret = secret
	encoded := EncodeSecret(secret)

	return &MFAEnrollment{
		Method:       MethodTOTP,
		SecretBase32: encoded,
		URI:          e.totp.ProvisionURI(encoded, profile.IdentityID),
	}, nil
}

func (totpMethod) send(context.Context, *Engine, *MFAProfile, string) error {
	// Nothing to deliver; the authenticator derives codes locally.
	return nil
}

func (totpMethod) validate(_ context.Context, e *Engine, profile *MFAProfile, _ string, code string) (bool, error) {
	ok, counter, err := e.totp.VerifyCode(profile.Secret, code, e.now())
	if err != nil || !ok {
		return false, err
	}
	// Each counter value is accepted once. A second presentation of the same
	// code, even inside the skew window, is a replay.
	if counter <= profile.LastUsedCounter {
		return false, nil
	}
	profile.LastUsedCounter = counter
	return true, nil
}

// codeMethod covers SMS and email: no persistent secret, only transient
// single-use codes held hashed in the challenge-code store and delivered by
// the notification dispatcher.
type codeMethod struct {
	channel NotificationChannel
}

func (m codeMethod) begin(ctx context.Context, e *Engine, profile *MFAProfile) (*MFAEnrollment, error) {
	if err := m.send(ctx, e, profile, codePurposeEnroll); err != nil {
		return nil, err
	}
	return &MFAEnrollment{Method: profile.Method}, nil
}

func (m codeMethod) send(ctx context.Context, e *Engine, profile *MFAProfile, purpose string) error {
	if e.codes == nil || e.notifier == nil {
		return ErrMFAUnavailable
	}

	code, err := internal.NewOTP(e.config.MFA.Digits)
	if err != nil {
		return err
	}

	storeCtx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.codes.Save(storeCtx, purpose, profile.IdentityID, internal.HashCode(code), e.config.MFA.CodeTTL); err != nil {
		return ErrMFAUnavailable
	}

	// Delivery failures surface to the caller; the stored hash simply ages
	// out if the code never arrives.
	if err := e.notifier.SendCode(ctx, m.channel, profile.IdentityID, code); err != nil {
		return err
	}
	return nil
}

func (m codeMethod) validate(ctx context.Context, e *Engine, profile *MFAProfile, purpose, code string) (bool, error) {
	if e.codes == nil {
		return false, ErrMFAUnavailable
	}

	storeCtx, cancel := e.storeCtx(ctx)
	defer cancel()

	ok, err := e.codes.Consume(storeCtx, purpose, profile.IdentityID, internal.HashCode(code))
	if err != nil {
		if errors.Is(err, errChallengeCodeNotFound) {
			// Expired or never issued: indistinguishable from a wrong code.
			return false, nil
		}
		return false, ErrMFAUnavailable
	}
	return ok, nil
}
