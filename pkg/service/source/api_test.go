package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/service/source"
)

func TestAPIClientFetch(t *testing.T) {
	t.Run("maps items to message records", func(t *testing.T) {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gt.Equal(t, r.URL.Query().Get("skip"), "0")
			gt.Equal(t, r.URL.Query().Get("limit"), "100")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items": [
				{"id": "m1", "user_id": "u1", "user_name": "Layla Kawaguchi", "message": "Planning my trip to London", "timestamp": "2024-03-01T10:00:00Z"},
				{"id": "m2", "user_id": "u2", "user_name": "Vikram Desai", "message": "Just bought a new BMW", "timestamp": "2024-03-02T11:30:00Z"}
			], "total": 2}`))
		}))
		defer srv.Close()

		client, err := source.NewAPIClient(srv.URL, source.WithAPIKey("sekrit"))
		gt.NoError(t, err).Required()

		records, err := client.Fetch(context.Background(), 100)
		gt.NoError(t, err).Required()
		gt.Equal(t, gotAuth, "Bearer sekrit")

		gt.Array(t, records).Length(2)
		gt.Equal(t, records[0].ID, types.MessageID("m1"))
		gt.Equal(t, records[0].MemberID, types.MemberID("u1"))
		gt.Equal(t, records[0].MemberName, "Layla Kawaguchi")
		gt.Equal(t, records[0].Text, "Planning my trip to London")
		gt.Equal(t, records[0].Timestamp.Year(), 2024)
		gt.Equal(t, records[1].MemberName, "Vikram Desai")
	})

	t.Run("caps records at limit", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"items": [
				{"id": "m1", "user_id": "u1", "user_name": "A", "message": "one", "timestamp": ""},
				{"id": "m2", "user_id": "u1", "user_name": "A", "message": "two", "timestamp": ""},
				{"id": "m3", "user_id": "u1", "user_name": "A", "message": "three", "timestamp": ""}
			]}`))
		}))
		defer srv.Close()

		client, err := source.NewAPIClient(srv.URL)
		gt.NoError(t, err).Required()

		records, err := client.Fetch(context.Background(), 2)
		gt.NoError(t, err).Required()
		gt.Array(t, records).Length(2)
		gt.Equal(t, records[1].ID, types.MessageID("m2"))
	})

	t.Run("maps 401 to ErrSourceAuth", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		client, err := source.NewAPIClient(srv.URL)
		gt.NoError(t, err).Required()

		_, err = client.Fetch(context.Background(), 10)
		gt.B(t, errors.Is(err, types.ErrSourceAuth)).True()
	})

	t.Run("maps 500 to ErrSourceUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client, err := source.NewAPIClient(srv.URL)
		gt.NoError(t, err).Required()

		_, err = client.Fetch(context.Background(), 10)
		gt.B(t, errors.Is(err, types.ErrSourceUnavailable)).True()
	})

	t.Run("maps connection failure to ErrSourceUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // shut down before use

		client, err := source.NewAPIClient(srv.URL)
		gt.NoError(t, err).Required()

		_, err = client.Fetch(context.Background(), 10)
		gt.B(t, errors.Is(err, types.ErrSourceUnavailable)).True()
	})

	t.Run("rejects empty URL", func(t *testing.T) {
		_, err := source.NewAPIClient("")
		gt.Error(t, err)
	})
}
