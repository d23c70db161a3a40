package auth

import "testing"

func TestCredentialStoreAccessToken(t *testing.T) {
	store := NewCredentialStore()

	if _, ok := store.AccessToken(); ok {
		t.Error("new store reports a held token")
	}

	store.SetAccessToken("access-1")
	if token, ok := store.AccessToken(); !ok || token != "access-1" {
		t.Errorf("AccessToken() = %q, %v, want %q, true", token, ok, "access-1")
	}

	store.Clear()
	if _, ok := store.AccessToken(); ok {
		t.Error("token still held after Clear")
	}

	// An empty token means absent.
	store.SetAccessToken("")
	if _, ok := store.AccessToken(); ok {
		t.Error("empty token reported as held")
	}
}

func TestCredentialStoreAuthErrorHandler(t *testing.T) {
	store := NewCredentialStore()

	// No handler registered: nothing happens.
	store.notifyAuthError()

	calls := 0
	store.SetAuthErrorHandler(func() { calls++ })
	store.notifyAuthError()
	store.notifyAuthError()
	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}

	store.SetAuthErrorHandler(nil)
	store.notifyAuthError()
	if calls != 2 {
		t.Errorf("handler ran %d times after removal, want 2", calls)
	}
}

func TestCredentialStoreHandlerMayReenter(t *testing.T) {
	store := NewCredentialStore()
	store.SetAccessToken("access-1")

	// The handler runs without the store lock held, so it may call back in.
	store.SetAuthErrorHandler(func() {
		store.Clear()
	})
	store.notifyAuthError()

	if _, ok := store.AccessToken(); ok {
		t.Error("token still held after reentrant clear")
	}
}
