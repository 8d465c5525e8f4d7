package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/qconnect/internal/client/config"
	"github.com/dmitrijs2005/qconnect/internal/client/credstore"
	"github.com/dmitrijs2005/qconnect/internal/client/provider"
	"github.com/dmitrijs2005/qconnect/internal/client/session"
	"github.com/dmitrijs2005/qconnect/internal/logging"

	_ "modernc.org/sqlite"
)

// sessionService is the slice of the session manager the CLI depends on.
// Tests can provide a lightweight fake.
type sessionService interface {
	Restore(ctx context.Context) error
	SignUp(ctx context.Context, email string, password []byte) error
	ConfirmSignUp(ctx context.Context, email, code string) error
	SignIn(ctx context.Context, email string, password []byte) error
	SignOut(ctx context.Context)
	ValidToken(ctx context.Context) (string, error)
	IsSignedIn() bool
	CurrentStatus() session.Status
	UserSub() string
	Email() string
}

type App struct {
	config  *config.Config
	session sessionService
	idp     provider.Client
	db      *sql.DB
	reader  *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	db, err := credstore.Open(ctx, c.DatabaseDSN)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	idp, err := provider.NewCognitoClient(ctx, c.ProviderRegion, c.ProviderClientID)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logger := logging.NewSlogLogger(slog.Default())

	mgr, err := session.NewManager(idp, credstore.NewSQLiteRepository(db), logger,
		session.WithSkew(c.RefreshSkew),
		session.WithRefreshWait(c.RefreshWait),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{config: c, session: mgr, idp: idp, db: db, reader: bufio.NewReader(os.Stdin)}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()

	log.Println("Welcome to QConnect CLI (type 'help' for commands)")

	if err := a.session.Restore(ctx); err != nil {
		log.Printf("session restore failed: %s", err.Error())
	}

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

func (a *App) Close() {
	_ = a.idp.Close()
	_ = a.db.Close()
}

func (a *App) isLoggedIn() bool {
	return a.session.IsSignedIn()
}

func (a *App) getStatus() string {
	if email := a.session.Email(); email != "" {
		return email
	}
	return "signed out"
}
