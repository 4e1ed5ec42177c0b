package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trustport/compliance-backend/internal/repos"
	"github.com/trustport/compliance-backend/internal/types"
)

func newAuthServiceUnderTest(t *testing.T, env *testEnv) AuthService {
	t.Helper()
	userRepo := repos.NewUserRepo(env.db, env.log)
	companyRepo := repos.NewCompanyRepo(env.db, env.log)
	return NewAuthService(env.db, env.log, userRepo, companyRepo, "test-secret", time.Hour)
}

func TestRegisterCreatesCompanyAndLoginRoundTrips(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthServiceUnderTest(t, env)

	user := &types.User{Email: "Ops@Example.COM", Password: "hunter22"}
	if err := auth.RegisterUser(context.Background(), user, "Acme Holdings"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if user.CompanyID == uuid.Nil {
		t.Fatalf("registration must assign a company")
	}
	if user.Password == "hunter22" {
		t.Fatalf("password must be stored hashed")
	}

	token, err := auth.LoginUser(context.Background(), "ops@example.com", "hunter22")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	rd, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if rd.UserID != user.ID || rd.CompanyID != user.CompanyID {
		t.Fatalf("claims: want=(%s,%s) got=(%s,%s)", user.ID, user.CompanyID, rd.UserID, rd.CompanyID)
	}

	if _, err := auth.LoginUser(context.Background(), "ops@example.com", "wrong"); err == nil {
		t.Fatalf("wrong password must fail")
	}
}

func TestRegisterRejectsUnknownCompanyAndDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthServiceUnderTest(t, env)

	stranger := &types.User{Email: "a@b.co", Password: "pw123456", CompanyID: uuid.New()}
	if err := auth.RegisterUser(context.Background(), stranger, ""); err == nil {
		t.Fatalf("unknown company id must be rejected")
	}

	first := &types.User{Email: "dup@b.co", Password: "pw123456"}
	if err := auth.RegisterUser(context.Background(), first, "First Co"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	second := &types.User{Email: "dup@b.co", Password: "pw123456"}
	if err := auth.RegisterUser(context.Background(), second, "Second Co"); err == nil {
		t.Fatalf("duplicate email must be rejected")
	}
}

func TestParseTokenRejectsForgedSignature(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthServiceUnderTest(t, env)

	user := &types.User{Email: "sig@b.co", Password: "pw123456"}
	if err := auth.RegisterUser(context.Background(), user, "Sig Co"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	token, err := auth.LoginUser(context.Background(), "sig@b.co", "pw123456")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}

	otherUserRepo := repos.NewUserRepo(env.db, env.log)
	otherCompanyRepo := repos.NewCompanyRepo(env.db, env.log)
	other := NewAuthService(env.db, env.log, otherUserRepo, otherCompanyRepo, "different-secret", time.Hour)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
}
