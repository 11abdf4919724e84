package app

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/debemdeboas/pagedraft/internal/auth"
	"github.com/debemdeboas/pagedraft/internal/config"
	"github.com/debemdeboas/pagedraft/internal/db"
	"github.com/debemdeboas/pagedraft/internal/entity"
	"github.com/debemdeboas/pagedraft/internal/model"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.PostTypes = config.DefaultPostTypes()
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, &config.Secrets{AdminUserID: "admin"}, WithDatabase(db.NewSQLite(":memory:")))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewSQLite(t *testing.T) {
	a := newTestApp(t, testConfig())

	if a.DB == nil {
		t.Fatal("Expected database for the sqlite backend")
	}

	ctx := auth.ContextWithUserID(context.Background(), "admin")
	post, err := a.Store.SaveEntityRecord(ctx, entity.KindPostType, "page", model.PostEdits{Title: "Wired"}, entity.SaveOptions{ThrowOnError: true})
	if err != nil {
		t.Fatalf("SaveEntityRecord failed: %v", err)
	}
	if got := a.Repo.GetPostList("page"); len(got) != 1 || got[0].ID != post.ID {
		t.Errorf("Expected the saved page in the repository list, got %v", got)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Backend = "tape"
	if _, err := New(context.Background(), cfg, &config.Secrets{}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func publicKeyPEM(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func TestAuthProvider(t *testing.T) {
	testCases := []struct {
		name      string
		enabled   bool
		authType  string
		pubKey    bool
		expectErr bool
		check     func(t *testing.T, p auth.AuthProvider)
	}{
		{
			name: "Disabled",
			check: func(t *testing.T, p auth.AuthProvider) {
				if a, ok := p.(auth.Anonymous); !ok || a.UserID != "admin" {
					t.Errorf("Expected anonymous admin provider, got %T", p)
				}
			},
		},
		{
			name: "Ed25519", enabled: true, authType: config.AuthTypeEd25519, pubKey: true,
			check: func(t *testing.T, p auth.AuthProvider) {
				if _, ok := p.(*auth.Ed25519AuthProvider); !ok {
					t.Errorf("Expected ed25519 provider, got %T", p)
				}
			},
		},
		{name: "Ed25519WithoutKey", enabled: true, authType: config.AuthTypeEd25519, expectErr: true},
		{
			name: "Clerk", enabled: true, authType: config.AuthTypeClerk,
			check: func(t *testing.T, p auth.AuthProvider) {
				if _, ok := p.(*auth.ClerkAuthProvider); !ok {
					t.Errorf("Expected clerk provider, got %T", p)
				}
			},
		},
		{name: "Unknown", enabled: true, authType: "ldap", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Features.Authentication.Enabled = tc.enabled
			cfg.Features.Authentication.Type = tc.authType
			a := newTestApp(t, cfg)

			secrets := &config.Secrets{AdminUserID: "admin", ClerkAPI: "sk_test_x"}
			if tc.pubKey {
				secrets.Ed25519PubKey = publicKeyPEM(t)
			}

			p, err := a.AuthProvider(secrets)
			if tc.expectErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("AuthProvider failed: %v", err)
			}
			tc.check(t, p)
		})
	}
}
