package daemon

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/matheus3301/drv/internal/config"
	"github.com/matheus3301/drv/internal/lock"
	"github.com/matheus3301/drv/internal/rpc"
	"github.com/matheus3301/drv/internal/session"
)

func fakePlatform(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/driverLogin", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"user":{"id":31,"name":"Usma"}}`)
	})
	mux.HandleFunc("/api/driverOrders", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"orders":[{"id":501,"driver_status":"Pick me","staff_name":"Aisha"}]}`)
	})
	mux.HandleFunc("/api/driverOrderStatusUpdate/501", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user_id") != "31" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"success":false,"message":"missing driver"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDaemonLifecycle(t *testing.T) {
	// Use a short path to stay under the 104-char Unix socket limit.
	home, err := os.MkdirTemp("/tmp", "drv-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(home) }()
	t.Setenv(session.HomeEnv, home)

	platform := fakePlatform(t)
	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.API.BaseURL = platform.URL + "/api"
	cfg.API.ChatBaseURL = platform.URL + "/api/driver"

	app := fxtest.New(t, fx.NopLogger, Module(Params{SessionName: "test", Config: cfg}))
	app.RequireStart()
	defer app.RequireStop()

	var held *lock.HeldError
	if _, err := lock.Acquire(session.Dir("test")); !errors.As(err, &held) {
		t.Fatalf("second Acquire error = %v, want HeldError", err)
	}
	if held.PID != os.Getpid() {
		t.Errorf("holder pid = %d, want %d", held.PID, os.Getpid())
	}

	conn, err := grpc.NewClient(
		"unix://"+session.SocketPath("test"),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions := rpc.NewSessionClient(conn)
	st, err := sessions.GetStatus(ctx, &rpc.GetStatusRequest{})
	if err != nil {
		t.Fatalf("GetStatus error = %v", err)
	}
	if st.Status != "SIGNED_OUT" || st.Driver != nil {
		t.Errorf("status = %s driver = %v, want SIGNED_OUT and no driver", st.Status, st.Driver)
	}

	login, err := sessions.Login(ctx, &rpc.LoginRequest{Username: "usma@tadhem.com", Password: "secret"})
	if err != nil {
		t.Fatalf("Login error = %v", err)
	}
	if login.Driver.DriverID != "31" {
		t.Errorf("driver id = %q, want 31", login.Driver.DriverID)
	}

	orderClient := rpc.NewOrderClient(conn)
	view, err := orderClient.ListOrders(ctx, &rpc.ListOrdersRequest{Refresh: true})
	if err != nil {
		t.Fatalf("ListOrders error = %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].Action != "Mark as Accepted" {
		t.Fatalf("orders = %+v, want one order with action 'Mark as Accepted'", view.Items)
	}

	adv, err := orderClient.AdvanceOrder(ctx, &rpc.AdvanceOrderRequest{OrderID: "501", FromStatus: "Pick me"})
	if err != nil {
		t.Fatalf("AdvanceOrder error = %v", err)
	}
	if adv.Next != "Accepted" {
		t.Errorf("next = %q, want Accepted", adv.Next)
	}

	activity, err := sessions.ListActivity(ctx, &rpc.ListActivityRequest{})
	if err != nil {
		t.Fatalf("ListActivity error = %v", err)
	}
	if len(activity.Entries) != 1 || activity.Entries[0].Outcome != "ok" || activity.Entries[0].Detail != "Accepted" {
		t.Errorf("activity = %+v, want one ok entry for Accepted", activity.Entries)
	}

	if _, err := sessions.Logout(ctx, &rpc.LogoutRequest{}); err != nil {
		t.Fatalf("Logout error = %v", err)
	}
	st, err = sessions.GetStatus(ctx, &rpc.GetStatusRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != "SIGNED_OUT" {
		t.Errorf("status after logout = %s", st.Status)
	}
}
