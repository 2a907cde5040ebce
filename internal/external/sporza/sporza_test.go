package sporza

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/wielermanager/pkg/config"
	"github.com/wonny/wielermanager/pkg/logger"
	"github.com/wonny/wielermanager/pkg/redis"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Tadej Pogačar", "tadej pogacar"},
		{"Mads Pedersen", "mads pedersen"},
		{"Jonas Vingegaard", "jonas vingegaard"},
		{"Søren Wærenskjold", "soren waerenskjold"},
		{"Benoît Cosnefroy", "benoit cosnefroy"},
		{"Mathieu van der Poel", "mathieu van der poel"},
		{"mathieu-van-der-poel", "mathieu van der poel"},
		{"  Tim   Merlier ", "tim merlier"},
		{"O'Connor, Ben", "oconnor ben"},
		{"Arnaud De Lie (BEL)", "arnaud de lie bel"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestPriceList_Lookup(t *testing.T) {
	list := NewPriceList([]Cyclist{
		{ID: 1, FullName: "Tadej Pogačar", Price: 15},
		{ID: 2, FullName: "Wout van Aert", Price: 12},
		{ID: 3, FullName: "Wout Van Aert", Price: 99},
	})

	cy, ok := list.Lookup("Tadej Pogacar")
	require.True(t, ok)
	assert.Equal(t, 15.0, cy.Price)

	cy, ok = list.Lookup("wout-van-aert")
	require.True(t, ok)
	assert.Equal(t, 12.0, cy.Price)
	assert.Equal(t, 2, list.Len())

	_, ok = list.Lookup("Unknown Rider")
	assert.False(t, ok)
}

func TestPriceList_FuzzyLookup(t *testing.T) {
	list := NewPriceList([]Cyclist{
		{ID: 1, FullName: "Tadej Pogačar", Price: 15},
		{ID: 2, FullName: "Wout van Aert", Price: 12},
		{ID: 3, FullName: "Thomas Pidcock", Price: 10},
		{ID: 4, FullName: "Mathieu van der Poel", Price: 16},
	})

	tests := []struct {
		name   string
		query  string
		wantID int
		wantOK bool
	}{
		{"reordered particles", "Van Aert Wout", 2, true},
		{"surname first", "POEL Mathieu van der", 4, true},
		{"short first name", "Tom Pidcock", 3, true},
		{"different rider", "Tim Merlier", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cy, ok := list.Lookup(tt.query)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, cy.ID)
		})
	}
}

func TestPriceList_ExactBeforeFuzzy(t *testing.T) {
	list := NewPriceList([]Cyclist{
		{ID: 1, FullName: "Thomas Pidcock", Price: 10},
		{ID: 2, FullName: "Tom Pidcockx", Price: 1},
	})

	// the first name only matches fuzzily, the slug matches exactly
	cy, ok := list.Lookup("Tom Pidcock", "thomas-pidcock")
	require.True(t, ok)
	assert.Equal(t, 1, cy.ID)

	_, score, ok := list.Closest("Pidcock Thomas")
	require.True(t, ok)
	assert.Equal(t, 100.0, score)
	assert.Less(t, similarity("pidcock tom", "pidcock thomas"), 100.0)
	assert.GreaterOrEqual(t, similarity("pidcock tom", "pidcock thomas"), FuzzyThreshold)
}

func TestClient_Cyclists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/vrjr-m-26/cyclists", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cyclists":[
			{"id":7,"fullName":"Mads Pedersen","price":11.5,"popularity":34.2,"team":{"name":"Lidl-Trek","jerseyUrl":"https://cdn/lidl.png"}}
		]}`))
	}))
	defer server.Close()

	client := NewClient(config.SporzaConfig{BaseURL: server.URL, Game: "vrjr-m-26"}, logger.NewNop()).
		WithCache(redis.NewCache(redis.Disabled(), "test"))

	cyclists, err := client.Cyclists(context.Background())
	require.NoError(t, err)
	require.Len(t, cyclists, 1)
	assert.Equal(t, "Mads Pedersen", cyclists[0].FullName)
	assert.Equal(t, 11.5, cyclists[0].Price)
	assert.Equal(t, "https://cdn/lidl.png", cyclists[0].Team.JerseyURL)
}

func TestClient_CyclistsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(config.SporzaConfig{BaseURL: server.URL, Game: "vrjr-m-26"}, nil)
	_, err := client.Cyclists(context.Background())
	assert.Error(t, err)
}
