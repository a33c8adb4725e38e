package teamcity

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prbuild-agent/src/provider"
)

func TestClient_GetBuilds_Request(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/app/rest/builds" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		want := "buildType:Proj_Build,branch:requests/42,count:1,running:any"
		if got := r.URL.Query().Get("locator"); got != want {
			t.Errorf("locator = %q, want %q", got, want)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("unexpected Accept header: %s", r.Header.Get("Accept"))
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "robot" || pass != "secret" {
			t.Errorf("missing basic auth, got %q/%q", user, pass)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"count": 1,
			"build": [{
				"id": 7,
				"number": "core-1.2.3",
				"status": "SUCCESS",
				"state": "finished",
				"branchName": "requests/42",
				"finishOnAgentDate": "20240131T154502+0300",
				"webUrl": "https://ci.example.org/viewLog.html?buildId=7"
			}]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", BasicAuth("robot", "secret"))
	payload, authorized, err := client.GetBuilds(context.Background(), "Proj_Build", "requests/42")
	if err != nil {
		t.Fatalf("GetBuilds() error = %v", err)
	}
	if !authorized {
		t.Fatal("GetBuilds() authorized = false, want true")
	}
	if payload.Count != 1 || len(payload.Builds) != 1 {
		t.Fatalf("payload = %+v, want one build", payload)
	}
	b := payload.Builds[0]
	if b.Number != "core-1.2.3" || b.Status != provider.StatusSuccess || b.State != provider.StateFinished {
		t.Errorf("unexpected build %+v", b)
	}
	if b.FinishOnAgentDate != "20240131T154502+0300" {
		t.Errorf("FinishOnAgentDate = %q", b.FinishOnAgentDate)
	}
}

func TestClient_GetBuildQueue_Request(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/app/rest/buildQueue" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("locator"); got != "buildType:(id:Proj_Build)" {
			t.Errorf("locator = %q", got)
		}
		w.Write([]byte(`{"count": 0, "build": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", nil)
	payload, authorized, err := client.GetBuildQueue(context.Background(), "Proj_Build")
	if err != nil {
		t.Fatalf("GetBuildQueue() error = %v", err)
	}
	if !authorized || payload.Count != 0 {
		t.Errorf("GetBuildQueue() = %+v, %v", payload, authorized)
	}
}

func TestClient_Unauthorized(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "401",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "redirect to login page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/login.html" {
					w.Write([]byte("<html>login</html>"))
					return
				}
				http.Redirect(w, r, "/login.html", http.StatusFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(server.URL+"/", BasicAuth("robot", "wrong"))
			payload, authorized, err := client.GetBuilds(context.Background(), "Proj_Build", "requests/1")
			if err != nil {
				t.Fatalf("GetBuilds() error = %v, want nil", err)
			}
			if authorized {
				t.Error("authorized = true, want false")
			}
			if payload != nil {
				t.Errorf("payload = %+v, want nil", payload)
			}
		})
	}
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", nil)
	_, _, err := client.GetBuilds(context.Background(), "Proj_Build", "requests/1")
	if !errors.Is(err, provider.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
}

func TestClient_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", nil)
	_, _, err := client.GetBuildQueue(context.Background(), "Proj_Build")
	if !errors.Is(err, provider.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL + "/"
	server.Close()

	client := NewClient(baseURL, nil, WithTimeout(time.Second))
	_, _, err := client.GetBuilds(context.Background(), "Proj_Build", "requests/1")
	if !errors.Is(err, provider.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
}

func TestClient_GetCSRFToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/authenticationTest.html" || r.URL.RawQuery != "csrf" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		w.Write([]byte("token-abc\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", BasicAuth("robot", "secret"))
	token, err := client.GetCSRFToken(context.Background())
	if err != nil {
		t.Fatalf("GetCSRFToken() error = %v", err)
	}
	if token != "token-abc" {
		t.Errorf("token = %q, want %q", token, "token-abc")
	}
}

func TestClient_GetCSRFToken_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", nil)
	if _, err := client.GetCSRFToken(context.Background()); !errors.Is(err, provider.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
}

func TestClient_QueueBuild(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/app/rest/buildQueue" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get(CSRFHeader); got != "tok" {
			t.Errorf("%s = %q, want %q", CSRFHeader, got, "tok")
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		want := `{"branchName":"requests/42","buildType":{"id":"Proj_Build"}}`
		if string(body) != want {
			t.Errorf("body = %s, want %s", body, want)
		}
		w.Write([]byte(`{"id": 55, "state": "queued", "branchName": "requests/42", "webUrl": "https://ci/q/55"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", nil)
	build, err := client.QueueBuild(context.Background(), "Proj_Build", "requests/42", "tok")
	if err != nil {
		t.Fatalf("QueueBuild() error = %v", err)
	}
	if build.State != provider.StateQueued || build.ID != 55 {
		t.Errorf("build = %+v", build)
	}
}

func TestClient_QueueBuild_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", nil)
	if _, err := client.QueueBuild(context.Background(), "Proj_Build", "requests/42", "tok"); !errors.Is(err, provider.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("20240131T154502+0300")
	if err != nil {
		t.Fatalf("ParseTimestamp() error = %v", err)
	}
	if got := ts.UTC().Format(time.RFC3339); got != "2024-01-31T12:45:02Z" {
		t.Errorf("ParseTimestamp() = %s", got)
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("ParseTimestamp() expected error for garbage input")
	}
}
