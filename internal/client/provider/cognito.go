package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// cognitoAPI is the subset of the Cognito SDK client we call.
// Extracted as an interface so tests can substitute a fake.
type cognitoAPI interface {
	SignUp(ctx context.Context, params *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
}

// CognitoClient implements Client against an AWS Cognito user pool using the
// USER_PASSWORD_AUTH and REFRESH_TOKEN_AUTH flows. These are unauthenticated
// pool operations, so the client runs with anonymous AWS credentials.
type CognitoClient struct {
	clientID string
	api      cognitoAPI
}

// NewCognitoClient builds a CognitoClient for the given region and app
// client id.
func NewCognitoClient(ctx context.Context, region, clientID string) (*CognitoClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return &CognitoClient{
		clientID: clientID,
		api:      cip.NewFromConfig(cfg),
	}, nil
}

func (c *CognitoClient) SignUp(ctx context.Context, email string, password []byte) error {
	_, err := c.api.SignUp(ctx, &cip.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(email),
		Password: aws.String(string(password)),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	})
	return c.mapError(err)
}

func (c *CognitoClient) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := c.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	return c.mapError(err)
}

func (c *CognitoClient) PasswordSignIn(ctx context.Context, email string, password []byte) (*Tokens, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": string(password),
		},
	})
	if err != nil {
		return nil, c.mapError(err)
	}

	// Missing tokens in a nominally successful response are surfaced as
	// empty strings; the session manager rejects them before persisting.
	t := &Tokens{}
	if res := out.AuthenticationResult; res != nil {
		t.AccessToken = aws.ToString(res.IdToken)
		t.RefreshToken = aws.ToString(res.RefreshToken)
	}
	return t, nil
}

func (c *CognitoClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	})
	if err != nil {
		return "", c.mapError(err)
	}

	if out.AuthenticationResult == nil || out.AuthenticationResult.IdToken == nil {
		return "", fmt.Errorf("%w: refresh response carried no token", ErrInvalidCredentials)
	}
	return *out.AuthenticationResult.IdToken, nil
}

func (c *CognitoClient) Close() error {
	return nil
}

// mapError classifies SDK failures into the package sentinels. Typed pool
// exceptions become their matching sentinel, other service errors are
// wrapped with the provider's error code, and anything that never reached
// the service (transport, DNS, timeout) maps to ErrUnavailable.
func (c *CognitoClient) mapError(err error) error {
	if err == nil {
		return nil
	}

	var (
		notAuthorized *types.NotAuthorizedException
		userNotFound  *types.UserNotFoundException
		notConfirmed  *types.UserNotConfirmedException
		codeMismatch  *types.CodeMismatchException
		expiredCode   *types.ExpiredCodeException
		userExists    *types.UsernameExistsException
	)

	switch {
	case errors.As(err, &notAuthorized), errors.As(err, &userNotFound):
		return ErrInvalidCredentials
	case errors.As(err, &notConfirmed):
		return ErrUserNotConfirmed
	case errors.As(err, &codeMismatch), errors.As(err, &expiredCode):
		return ErrInvalidCode
	case errors.As(err, &userExists):
		return ErrUserExists
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("identity provider error %s: %w", apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
