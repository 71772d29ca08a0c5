package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/crickettalent/internal/api"
	"github.com/mcoot/crickettalent/internal/factory"
	"github.com/mcoot/crickettalent/internal/services/auth"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "cricketctl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/cricketctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  filepath.Join(t.TempDir(), "token"),
	}
}

// withTokenFile returns a runner sharing the binary but with its own token file
func (r *cliRunner) withTokenFile(path string) *cliRunner {
	return &cliRunner{
		binaryPath: r.binaryPath,
		serverURL:  r.serverURL,
		tokenFile:  path,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// Create application
	app, err := factory.New(context.Background(), factory.Config{
		AuthConfig: auth.Config{Secret: "e2e-secret", BcryptCost: bcrypt.MinCost},
		Logger:     logger,
	})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AuthService:     app.AuthService,
		LinkRegistry:    app.LinkRegistry,
		Workflow:        app.Workflow,
		StatsAggregator: app.StatsAggregator,
	})
	server := api.NewServer(router, api.DefaultServerConfig(), logger)

	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		addr: serverURL,
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type accountResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind"`
}

type authResponse struct {
	Account accountResponse `json:"account"`
	Token   string          `json:"token"`
}

type accessCodeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type linkResponse struct {
	GuardianID   string `json:"guardian_id"`
	PlayerID     string `json:"player_id"`
	Relationship string `json:"relationship"`
}

type redeemResponse struct {
	Link   linkResponse `json:"link"`
	Player struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"player"`
}

type achievementResponse struct {
	ID         string  `json:"id"`
	PlayerID   string  `json:"player_id"`
	Status     string  `json:"status"`
	Title      string  `json:"title"`
	ReviewedBy *string `json:"reviewed_by"`
	Feedback   string  `json:"feedback"`
}

type statsResponse struct {
	Total  int                  `json:"total"`
	ByTier map[string]int       `json:"by_tier"`
	Latest *achievementResponse `json:"latest"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func decode[T any](t *testing.T, output string) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal([]byte(output), &v), "output: %s", output)
	return v
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, "ok", decode[healthResponse](t, output).Status)
}

func TestCLI_AccountCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("account", "register", "--user", "alice", "--pass", "password123", "--kind", "player", "--name", "Alice")
	require.NoError(t, err, "output: %s", output)
	registered := decode[authResponse](t, output)
	assert.Equal(t, "Alice", registered.Account.DisplayName)
	assert.NotEmpty(t, registered.Token)

	// Token is saved in the token file
	output, err = cli.run("account", "me")
	require.NoError(t, err, "output: %s", output)
	me := decode[accountResponse](t, output)
	assert.Equal(t, registered.Account.ID, me.ID)
	assert.Equal(t, "player", me.Kind)

	// Login from a fresh token file
	other := cli.withTokenFile(filepath.Join(t.TempDir(), "token"))
	output, err = other.run("account", "login", "--user", "alice", "--pass", "password123")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, registered.Account.ID, decode[authResponse](t, output).Account.ID)

	// Wrong password surfaces the API error code
	output, err = other.run("account", "login", "--user", "alice", "--pass", "not-the-password")
	require.Error(t, err)
	assert.Contains(t, output, "INVALID_CREDENTIALS")
}

func TestCLI_LinkAndReviewFlow(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	player := newCLIRunner(t, ts.addr)
	parent := player.withTokenFile(filepath.Join(t.TempDir(), "parent"))
	coach := player.withTokenFile(filepath.Join(t.TempDir(), "coach"))

	output, err := player.run("account", "register", "--user", "sam", "--pass", "password123", "--kind", "player")
	require.NoError(t, err, "output: %s", output)
	playerID := decode[authResponse](t, output).Account.ID

	output, err = parent.run("account", "register", "--user", "pat", "--pass", "password123", "--kind", "parent")
	require.NoError(t, err, "output: %s", output)

	output, err = coach.run("account", "register", "--user", "casey", "--pass", "password123", "--kind", "coach")
	require.NoError(t, err, "output: %s", output)
	coachID := decode[authResponse](t, output).Account.ID

	// Player issues a code and the parent redeems it
	output, err = player.run("code", "issue")
	require.NoError(t, err, "output: %s", output)
	code := decode[accessCodeResponse](t, output)
	assert.Len(t, code.Code, 8)

	output, err = player.run("code", "current")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, code.Code, decode[accessCodeResponse](t, output).Code)

	output, err = parent.run("code", "redeem", code.Code, "--relationship", "mother")
	require.NoError(t, err, "output: %s", output)
	redeemed := decode[redeemResponse](t, output)
	assert.Equal(t, playerID, redeemed.Player.ID)
	assert.Equal(t, "mother", redeemed.Link.Relationship)

	// Second redemption is refused
	output, err = parent.run("code", "redeem", code.Code)
	require.Error(t, err)
	assert.Contains(t, output, "CODE_ALREADY_CONSUMED")

	output, err = parent.run("links", "list")
	require.NoError(t, err, "output: %s", output)
	links := decode[[]linkResponse](t, output)
	require.Len(t, links, 1)
	assert.Equal(t, playerID, links[0].PlayerID)

	// Player submits, coach reviews
	date := time.Now().AddDate(0, 0, -7).Format("2006-01-02")
	output, err = player.run("achievement", "submit",
		"--category", "Bowling", "--tier", "Gold", "--date", date,
		"--title", "Five-wicket haul", "--description", "5/23 in the semi-final", "--value", "5/23")
	require.NoError(t, err, "output: %s", output)
	submitted := decode[achievementResponse](t, output)
	assert.Equal(t, "pending", submitted.Status)

	output, err = coach.run("achievement", "pending")
	require.NoError(t, err, "output: %s", output)
	pending := decode[[]achievementResponse](t, output)
	require.Len(t, pending, 1)
	assert.Equal(t, submitted.ID, pending[0].ID)

	output, err = coach.run("achievement", "review", submitted.ID, "--approve", "--feedback", "Great spell")
	require.NoError(t, err, "output: %s", output)
	reviewed := decode[achievementResponse](t, output)
	assert.Equal(t, "approved", reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, coachID, *reviewed.ReviewedBy)

	output, err = coach.run("achievement", "review", submitted.ID, "--reject")
	require.Error(t, err)
	assert.Contains(t, output, "INVALID_TRANSITION")

	// Stats reflect the approval
	output, err = parent.run("achievement", "stats", playerID)
	require.NoError(t, err, "output: %s", output)
	stats := decode[statsResponse](t, output)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByTier["Gold"])
	require.NotNil(t, stats.Latest)
	assert.Equal(t, "Five-wicket haul", stats.Latest.Title)

	output, err = parent.run("achievement", "list", "--player", playerID)
	require.NoError(t, err, "output: %s", output)
	assert.Len(t, decode[[]achievementResponse](t, output), 1)
}
