package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/qconnect/internal/client/provider"
	"github.com/dmitrijs2005/qconnect/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for an email and password and attempts to create
// a new account with the identity provider.
//
// On success it reminds the user to check their mailbox for a confirmation
// code. The password byte slice is securely wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.SignUp(ctx, email, password); err != nil {
		if errors.Is(err, provider.ErrUserExists) {
			fmt.Println("An account with this email already exists.")
			return nil
		}
		return err
	}

	fmt.Println("Success! Check your mailbox for a confirmation code.")
	return nil
}

// Confirm prompts for an email and the code the provider mailed out, and
// completes account registration.
func (a *App) Confirm(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	code, err := getSimpleText(a.reader, "Enter confirmation code", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.session.ConfirmSignUp(ctx, email, code); err != nil {
		if errors.Is(err, provider.ErrInvalidCode) {
			fmt.Println("The confirmation code is not valid.")
			return nil
		}
		return err
	}

	fmt.Println("Account confirmed. You can log in now.")
	return nil
}

// Login prompts the user for credentials and tries to authenticate.
//
// Credential and confirmation failures are reported to the user without
// being returned as errors; anything else (network, provider outage) is
// returned unchanged. The password is securely wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.SignIn(ctx, email, password); err != nil {
		switch {
		case errors.Is(err, provider.ErrInvalidCredentials):
			fmt.Println("Incorrect email or password.")
			return nil
		case errors.Is(err, provider.ErrUserNotConfirmed):
			fmt.Println("Account is not confirmed yet. Run 'confirm' first.")
			return nil
		}
		log.Printf("Login unsuccessfull: %s", err.Error())
		return err
	}

	fmt.Printf("Logged in as %s\n", a.session.Email())
	return nil
}

// Logout drops the local session and removes stored credentials.
func (a *App) Logout(ctx context.Context) error {
	a.session.SignOut(ctx)
	fmt.Println("Logged out.")
	return nil
}

// Whoami prints the identity of the currently signed-in user.
func (a *App) Whoami(ctx context.Context) error {
	if !a.session.IsSignedIn() {
		fmt.Println("Not logged in.")
		return nil
	}
	fmt.Printf("Email:   %s\n", a.session.Email())
	fmt.Printf("Subject: %s\n", a.session.UserSub())
	fmt.Printf("Status:  %s\n", a.session.CurrentStatus())
	return nil
}

// Token prints an ID token that is guaranteed to be fresh, refreshing the
// session first if needed.
func (a *App) Token(ctx context.Context) error {
	token, err := a.session.ValidToken(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotSignedIn) {
			fmt.Println("Not logged in.")
			return nil
		}
		return err
	}
	fmt.Println(token)
	return nil
}
