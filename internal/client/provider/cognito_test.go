package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCognitoAPI implements cognitoAPI for unit tests.
type fakeCognitoAPI struct {
	SignUpErr        error
	ConfirmErr       error
	InitiateAuthRet  *cip.InitiateAuthOutput
	InitiateAuthErr  error
	LastSignUp       *cip.SignUpInput
	LastConfirm      *cip.ConfirmSignUpInput
	LastInitiateAuth *cip.InitiateAuthInput
}

func (f *fakeCognitoAPI) SignUp(ctx context.Context, params *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error) {
	f.LastSignUp = params
	return &cip.SignUpOutput{}, f.SignUpErr
}

func (f *fakeCognitoAPI) ConfirmSignUp(ctx context.Context, params *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error) {
	f.LastConfirm = params
	return &cip.ConfirmSignUpOutput{}, f.ConfirmErr
}

func (f *fakeCognitoAPI) InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	f.LastInitiateAuth = params
	return f.InitiateAuthRet, f.InitiateAuthErr
}

func newTestClient(api *fakeCognitoAPI) *CognitoClient {
	return &CognitoClient{clientID: "client-1", api: api}
}

func TestSignUp_RequestShape(t *testing.T) {
	api := &fakeCognitoAPI{}
	c := newTestClient(api)

	err := c.SignUp(context.Background(), "a@b.com", []byte("pw"))
	require.NoError(t, err)

	require.NotNil(t, api.LastSignUp)
	assert.Equal(t, "client-1", aws.ToString(api.LastSignUp.ClientId))
	assert.Equal(t, "a@b.com", aws.ToString(api.LastSignUp.Username))
	assert.Equal(t, "pw", aws.ToString(api.LastSignUp.Password))
	require.Len(t, api.LastSignUp.UserAttributes, 1)
	assert.Equal(t, "email", aws.ToString(api.LastSignUp.UserAttributes[0].Name))
	assert.Equal(t, "a@b.com", aws.ToString(api.LastSignUp.UserAttributes[0].Value))
}

func TestConfirmSignUp_RequestShape(t *testing.T) {
	api := &fakeCognitoAPI{}
	c := newTestClient(api)

	err := c.ConfirmSignUp(context.Background(), "a@b.com", "123456")
	require.NoError(t, err)

	require.NotNil(t, api.LastConfirm)
	assert.Equal(t, "123456", aws.ToString(api.LastConfirm.ConfirmationCode))
	assert.Equal(t, "a@b.com", aws.ToString(api.LastConfirm.Username))
}

func TestPasswordSignIn_Success(t *testing.T) {
	api := &fakeCognitoAPI{
		InitiateAuthRet: &cip.InitiateAuthOutput{
			AuthenticationResult: &types.AuthenticationResultType{
				IdToken:      aws.String("id-token"),
				RefreshToken: aws.String("refresh-token"),
			},
		},
	}
	c := newTestClient(api)

	tokens, err := c.PasswordSignIn(context.Background(), "a@b.com", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, "id-token", tokens.AccessToken)
	assert.Equal(t, "refresh-token", tokens.RefreshToken)

	require.NotNil(t, api.LastInitiateAuth)
	assert.Equal(t, types.AuthFlowTypeUserPasswordAuth, api.LastInitiateAuth.AuthFlow)
	assert.Equal(t, "a@b.com", api.LastInitiateAuth.AuthParameters["USERNAME"])
	assert.Equal(t, "pw", api.LastInitiateAuth.AuthParameters["PASSWORD"])
}

func TestPasswordSignIn_EmptyResultYieldsEmptyTokens(t *testing.T) {
	api := &fakeCognitoAPI{InitiateAuthRet: &cip.InitiateAuthOutput{}}
	c := newTestClient(api)

	tokens, err := c.PasswordSignIn(context.Background(), "a@b.com", []byte("pw"))
	require.NoError(t, err)
	assert.Empty(t, tokens.AccessToken)
	assert.Empty(t, tokens.RefreshToken)
}

func TestRefresh_Success(t *testing.T) {
	api := &fakeCognitoAPI{
		InitiateAuthRet: &cip.InitiateAuthOutput{
			AuthenticationResult: &types.AuthenticationResultType{
				IdToken: aws.String("new-id-token"),
			},
		},
	}
	c := newTestClient(api)

	tok, err := c.Refresh(context.Background(), "refresh-token")
	require.NoError(t, err)
	assert.Equal(t, "new-id-token", tok)

	require.NotNil(t, api.LastInitiateAuth)
	assert.Equal(t, types.AuthFlowTypeRefreshTokenAuth, api.LastInitiateAuth.AuthFlow)
	assert.Equal(t, "refresh-token", api.LastInitiateAuth.AuthParameters["REFRESH_TOKEN"])
}

func TestRefresh_NoTokenInResponse(t *testing.T) {
	api := &fakeCognitoAPI{InitiateAuthRet: &cip.InitiateAuthOutput{}}
	c := newTestClient(api)

	_, err := c.Refresh(context.Background(), "refresh-token")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMapError(t *testing.T) {
	c := newTestClient(&fakeCognitoAPI{})

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "not authorized", in: &types.NotAuthorizedException{}, want: ErrInvalidCredentials},
		{name: "user not found", in: &types.UserNotFoundException{}, want: ErrInvalidCredentials},
		{name: "not confirmed", in: &types.UserNotConfirmedException{}, want: ErrUserNotConfirmed},
		{name: "code mismatch", in: &types.CodeMismatchException{}, want: ErrInvalidCode},
		{name: "expired code", in: &types.ExpiredCodeException{}, want: ErrInvalidCode},
		{name: "username exists", in: &types.UsernameExistsException{}, want: ErrUserExists},
		{name: "transport failure", in: errors.New("dial tcp: i/o timeout"), want: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.mapError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestMapError_OtherAPIErrorKeepsCode(t *testing.T) {
	c := newTestClient(&fakeCognitoAPI{})

	err := c.mapError(&types.TooManyRequestsException{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "TooManyRequestsException")
}
