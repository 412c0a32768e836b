package bot

import (
	"context"
	"testing"
	"time"

	"github.com/dotaladder/backend/internal/dota"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWorkerBecomesAvailableAndReleasesOnDisconnect(t *testing.T) {
	client := newFakeClient(testBotID)
	w, pool := newTestWorker(client, &fakeStore{}, &fakePublisher{})
	if err := pool.transition(w.cred.Login, CredIdle, CredStarting); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	client.push(dota.ConnectedEvent{})
	client.push(dota.LoggedOnEvent{})
	client.push(dota.ReadyEvent{})

	waitFor(t, "credential to become available", func() bool {
		_, _, available, _ := pool.Counts()
		return available == 1
	})

	client.mu.Lock()
	loggedIn, launchedGame := client.loggedIn, client.launchedGame
	client.mu.Unlock()
	if !loggedIn || !launchedGame {
		t.Errorf("handshake incomplete: loggedIn=%v launchedGame=%v", loggedIn, launchedGame)
	}

	client.push(dota.DisconnectedEvent{})
	<-done

	if idle, _, _, _ := pool.Counts(); idle != 1 {
		t.Errorf("credential not released to idle after disconnect")
	}
}

func TestWorkerDropsToStartingOnNotReady(t *testing.T) {
	client := newFakeClient(testBotID)
	w, pool := newTestWorker(client, &fakeStore{}, &fakePublisher{})
	pool.transition(w.cred.Login, CredIdle, CredStarting)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	client.push(dota.ReadyEvent{})
	waitFor(t, "available", func() bool {
		_, _, available, _ := pool.Counts()
		return available == 1
	})

	client.push(dota.NotReadyEvent{})
	waitFor(t, "back to starting", func() bool {
		_, starting, _, _ := pool.Counts()
		return starting == 1
	})

	client.push(dota.DisconnectedEvent{})
	<-done
}

func TestWorkerRunsExactlyOneJob(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	st.match.Status = 99 // unknown status, session is a quick no-op
	w, pool := newTestWorker(client, st, &fakePublisher{})
	pool.transition(w.cred.Login, CredIdle, CredStarting)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	client.push(dota.ReadyEvent{})
	waitFor(t, "available", func() bool {
		_, _, available, _ := pool.Counts()
		return available == 1
	})

	if !w.Assign(jobForMatch(7)) {
		t.Fatal("assign to available worker failed")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not terminate after its job")
	}

	if idle, _, _, _ := pool.Counts(); idle != 1 {
		t.Errorf("credential not idle after the worker ended")
	}
}

func TestAssignRejectsSecondJob(t *testing.T) {
	client := newFakeClient(testBotID)
	w, _ := newTestWorker(client, &fakeStore{}, &fakePublisher{})

	if !w.Assign(jobForMatch(1)) {
		t.Fatal("first assign failed")
	}
	if w.Assign(jobForMatch(2)) {
		t.Error("second assign accepted while the first is pending")
	}
}
