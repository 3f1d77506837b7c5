package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"storefront-service/internal/mail"
	"storefront-service/internal/model"
	"storefront-service/internal/repository/repotest"
	"storefront-service/pkg/config"

	"github.com/stretchr/testify/require"
)

const testPublicURL = "http://shop.test"

type sentMessage struct {
	recipient string
	msg       mail.VerificationMessage
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *fakeNotifier) Dispatch(_ context.Context, recipient string, msg mail.VerificationMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{recipient: recipient, msg: msg})
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		SigningKey:                  "test-signing-key",
		AccessTokenExpiration:       time.Hour,
		VerificationTokenExpiration: time.Hour,
	}
}

func testLinks() Links {
	return Links{PublicURL: testPublicURL, ImagePrefix: "/static/images"}
}

// seedOwner stores a user and its business directly, skipping password hashing
func seedOwner(t *testing.T, store *repotest.MemoryStore, username string) (*model.User, *model.Business) {
	t.Helper()
	ctx := context.Background()

	user := &model.User{Username: username, Email: username + "@x.com", Password: "unused"}
	require.NoError(t, store.CreateUser(ctx, user))

	business := &model.Business{BusinessName: username, OwnerID: user.ID}
	require.NoError(t, store.CreateBusiness(ctx, business))

	return user, business
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}
