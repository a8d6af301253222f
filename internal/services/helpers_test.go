package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/chachabrian/railparcel-backend/internal/database"
	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

type fixture struct {
	db *gorm.DB
	A  models.Station
	B  models.Station
	C  models.Station
	M  models.Station
}

// newFixture creates stations A, B, C and a master M, plus one user at
// each station.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db: db,
		M:  models.Station{Name: "Head Office", Code: "HQ001", IsMaster: true},
		A:  models.Station{Name: "Alpha", Code: "AAA01"},
		B:  models.Station{Name: "Bravo", Code: "BBB01"},
		C:  models.Station{Name: "Charlie", Code: "CCC01"},
	}
	for _, st := range []*models.Station{&f.A, &f.B, &f.C, &f.M} {
		require.NoError(t, db.Create(st).Error)
	}
	return f
}

func (f *fixture) user(t *testing.T, station models.Station, email, phone string, role models.Role) models.User {
	t.Helper()
	u := models.User{Name: "User " + station.Code, Role: role, StationID: station.ID}
	if email != "" {
		u.Email = &email
	}
	if phone != "" {
		u.Phone = &phone
	}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func actorAt(station models.Station) Actor {
	return Actor{UserID: 1, Name: "tester", Role: models.RoleUser, StationID: station.ID}
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages [][]models.Message
	parcels  []models.Parcel
	err      error
}

func (n *fakeNotifier) MessagesCreated(ctx context.Context, messages []models.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, messages)
	return n.err
}

func (n *fakeNotifier) ParcelUpdated(ctx context.Context, parcel models.Parcel) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.parcels = append(n.parcels, parcel)
	return n.err
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	next    int
	failPut bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) Store(ctx context.Context, data []byte, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut {
		return "", errors.New("storage down")
	}
	s.next++
	url := fmt.Sprintf("https://cdn.test/parcels/%d-%s", s.next, name)
	s.objects[url] = data
	return url, nil
}

func (s *fakeStorage) Delete(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, url)
	delete(s.objects, url)
	return nil
}

type sentMail struct {
	to, subject, text, html string
}

type fakeChannel struct {
	name string
	err  error
	mu   sync.Mutex
	sent []sentMail
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(ctx context.Context, to, subject, text, html string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMail{to: to, subject: subject, text: text, html: html})
	return c.err
}

func (c *fakeChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 64)...)
)
