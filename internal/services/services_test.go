package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/chachabrian/mooveit-carpool/internal/config"
	"github.com/chachabrian/mooveit-carpool/internal/events"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/chachabrian/mooveit-carpool/internal/store/storetest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// attach registers a client without a websocket connection.
func attach(h *Hub, userID uint) *Client {
	c := &Client{UserID: userID, Send: make(chan []byte, 8), Hub: h}
	h.mutex.Lock()
	h.clients[c] = true
	h.mutex.Unlock()
	return c
}

func receive(t *testing.T, c *Client) WebSocketMessage {
	t.Helper()
	select {
	case raw := <-c.Send:
		var msg WebSocketMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no websocket message")
		return WebSocketMessage{}
	}
}

func TestTripCache(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)
	cache := NewTripCache(client, time.Minute)

	_, hit, err := cache.GetSearch(ctx, "Casablanca", "Rabat")
	require.NoError(t, err)
	assert.False(t, hit)

	trips := []models.Trip{{ID: 7, DepartureCity: "Casablanca", ArrivalCity: "Rabat", AvailableSeats: 2}}
	require.NoError(t, cache.SetSearch(ctx, "Casablanca", "Rabat", trips))

	got, hit, err := cache.GetSearch(ctx, " casablanca", "RABAT ")
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 1)
	assert.Equal(t, uint(7), got[0].ID)

	require.NoError(t, client.Set(ctx, "unrelated", "1", 0).Err())
	require.NoError(t, cache.Invalidate(ctx))

	_, hit, err = cache.GetSearch(ctx, "Casablanca", "Rabat")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "1", client.Get(ctx, "unrelated").Val())
}

func TestHubDeliver(t *testing.T) {
	hub := NewHub(storetest.Logger())
	alice := attach(hub, 1)
	bob := attach(hub, 2)

	hub.Deliver(EventMessage{Type: events.BookingCreated, Recipients: []uint{2}, Data: map[string]int{"seats": 2}})

	msg := receive(t, bob)
	assert.Equal(t, events.BookingCreated, msg.Type)
	assert.Empty(t, alice.Send)
	assert.Equal(t, 2, hub.GetConnectedClients())
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewHub(storetest.Logger())
	c := &Client{UserID: 1, Send: make(chan []byte), Hub: hub}
	hub.clients[c] = true

	hub.BroadcastToUser(1, []byte("x"))

	assert.Equal(t, 0, hub.GetConnectedClients())
	_, open := <-c.Send
	assert.False(t, open)
}

func TestSubscribeEventsSkipsOwnOrigin(t *testing.T) {
	_, client := newRedis(t)
	hub := NewHub(storetest.Logger())
	c := attach(hub, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go SubscribeEvents(ctx, client, hub, "instance-a")

	// the subscription is asynchronous, so publish until the first one lands
	require.Eventually(t, func() bool {
		_ = PublishEvent(ctx, client, EventMessage{Type: "self", Recipients: []uint{5}, Origin: "instance-a"})
		_ = PublishEvent(ctx, client, EventMessage{Type: events.MessageSent, Recipients: []uint{5}, Origin: "instance-b"})
		return len(c.Send) > 0
	}, 2*time.Second, 20*time.Millisecond)

	for len(c.Send) > 0 {
		assert.Equal(t, events.MessageSent, receive(t, c).Type)
	}
}

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("photo", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["photo"][0]
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	st, err := InitStorage(config.StorageConfig{BaseURL: "http://api.test/", UploadDir: dir}, storetest.Logger())
	require.NoError(t, err)
	assert.False(t, st.IsUsingS3())

	url, err := st.UploadImage(fileHeader(t, "me.png", pngHeader), "profiles")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://api.test/uploads/profiles/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	key := strings.TrimPrefix(url, "http://api.test/uploads/")
	_, err = os.Stat(filepath.Join(dir, key))
	require.NoError(t, err)

	require.NoError(t, st.DeleteImage(url))
	_, err = os.Stat(filepath.Join(dir, key))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, st.DeleteImage("https://elsewhere.test/avatar.png"))
}

func TestLocalStorageRejectsNonImages(t *testing.T) {
	st, err := InitStorage(config.StorageConfig{BaseURL: "http://api.test", UploadDir: t.TempDir()}, storetest.Logger())
	require.NoError(t, err)

	_, err = st.UploadImage(fileHeader(t, "notes.png", []byte("just some text")), "profiles")
	assert.Error(t, err)
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("tok", NotificationPayload{Title: "Hi", Body: "there"})
	assert.Equal(t, "tok", msg.Token)
	assert.Equal(t, "carpool_default", msg.Android.Notification.ChannelID)
	assert.Equal(t, "Hi", msg.Notification.Title)
}

func TestRenderNotificationEmailEscapes(t *testing.T) {
	body := RenderNotificationEmail("<b>Sam</b>", "Booking confirmed", "See you", "http://app.test")
	assert.Contains(t, body, "&lt;b&gt;Sam&lt;/b&gt;")
	assert.Contains(t, body, "http://app.test/login")
}

type fakePush struct {
	mu   sync.Mutex
	sent []NotificationPayload
}

func (f *fakePush) SendNotificationToToken(_ context.Context, _ string, p NotificationPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return nil
}

type fakeMail struct {
	mu sync.Mutex
	to []string
}

func (f *fakeMail) Send(to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, to)
	return nil
}

type fakeQueue struct {
	mu    sync.Mutex
	types []string
	err   error
}

func (f *fakeQueue) Publish(_ context.Context, msg EventMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, msg.Type)
	return f.err
}

func TestNotifierFansOut(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	driver := storetest.User(t, s, "driver")
	driver.FCMToken = "device-1"
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error { return tx.SaveUser(ctx, driver) }))

	_, client := newRedis(t)
	cache := NewTripCache(client, time.Minute)
	require.NoError(t, cache.SetSearch(ctx, "Casablanca", "Rabat", []models.Trip{{ID: 1}}))

	hub := NewHub(storetest.Logger())
	ws := attach(hub, driver.ID)
	push, mail, queue := &fakePush{}, &fakeMail{}, &fakeQueue{err: errors.New("broker down")}

	n := NewNotifier(NotifierDeps{
		Store: s, Hub: hub, Redis: client, Cache: cache, Queue: queue,
		Push: push, Mail: mail, InstanceID: "test", Log: storetest.Logger(),
	})
	related := uint(42)
	n.Publish(ctx, events.Event{
		Type:       events.BookingCreated,
		Recipients: []uint{driver.ID},
		Data:       map[string]uint{"bookingId": 42},
		Notification: &models.Notification{
			UserID: driver.ID, Title: "New booking request", Message: "alice requested 1 seat(s)",
			Type: models.NotificationBookingRequest, RelatedEntityID: &related,
		},
	})
	n.Wait()

	assert.Equal(t, events.BookingCreated, receive(t, ws).Type)
	assert.Equal(t, []string{events.BookingCreated}, queue.types)
	require.Len(t, push.sent, 1)
	assert.Equal(t, "42", push.sent[0].Data["relatedEntityId"])
	assert.Equal(t, []string{"driver@example.com"}, mail.to)

	_, hit, err := cache.GetSearch(ctx, "Casablanca", "Rabat")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestNotifierHonoursPreferences(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	u := storetest.User(t, s, "carol")
	u.FCMToken = "device-2"
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		p := models.DefaultPreferences(u.ID)
		p.MessageAlerts = false
		p.EmailEnabled = false
		return tx.SaveNotificationPreference(ctx, p)
	}))

	push, mail := &fakePush{}, &fakeMail{}
	n := NewNotifier(NotifierDeps{Store: s, Push: push, Mail: mail, Log: storetest.Logger()})

	n.Publish(ctx, events.Event{Type: events.MessageSent, Recipients: []uint{u.ID}, Notification: &models.Notification{
		UserID: u.ID, Title: "New message", Message: "hi", Type: models.NotificationMessageReceived,
	}})
	n.Publish(ctx, events.Event{Type: events.BookingAccepted, Recipients: []uint{u.ID}, Notification: &models.Notification{
		UserID: u.ID, Title: "Booking confirmed", Message: "ok", Type: models.NotificationBookingConfirmed,
	}})
	n.Wait()

	require.Len(t, push.sent, 1)
	assert.Equal(t, "Booking confirmed", push.sent[0].Title)
	assert.Empty(t, mail.to)
}
