package transit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stuartleeks/home-dash/epaper-dash/dasherr"
)

const onePrediction = `callback([{"rid":"1281","tripid":"9","schdtm":"20240712 16:05","tmstmp":"20240712 15:58",` +
	`"stpnm":"BLVD EAST AT 60TH ST","stpid":"21824","vid":"7001","rt":"128","rtdir":"New York",` +
	`"des":"128 NEW YORK","prdtm":"20240712 16:07","dly":false,"prdctdn":"9"}])`

func TestParsePredictionsSingleArrival(t *testing.T) {
	arrivals, err := ParsePredictions(onePrediction)
	require.NoError(t, err)
	require.Len(t, arrivals, 1)

	assert.Equal(t, 128, arrivals[0].RouteNumber)
	want := time.Date(2024, 7, 12, 16, 7, 0, 0, Eastern)
	assert.True(t, want.Equal(arrivals[0].ArrivalTime))
	assert.Equal(t, "America/New_York", arrivals[0].ArrivalTime.Location().String())
	assert.Equal(t, int64(1720814820), arrivals[0].ArrivalTime.Unix())
}

func TestParsePredictionsDegradesToEmpty(t *testing.T) {
	for name, body := range map[string]string{
		"empty":     "callback()",
		"not json":  "callback(no buses right now)",
		"truncated": `callback([{"rt":"128",)`,
		"no route":  `callback([{"prdtm":"20240712 16:07"}])`,
		"no time":   `callback([{"rt":"128","prdtm":"20240712 16:10"},{"rt":"166"}])`,
		"rt number": `callback([{"rt":128,"prdtm":"20240712 16:07"}])`,
	} {
		t.Run(name, func(t *testing.T) {
			arrivals, err := ParsePredictions(body)
			require.NoError(t, err)
			assert.Empty(t, arrivals)
		})
	}
}

func TestParsePredictionsEnvelopeIsRequired(t *testing.T) {
	for name, body := range map[string]string{
		"no prefix": `[{"rt":"128","prdtm":"20240712 16:07"}])`,
		"no suffix": `callback([{"rt":"128","prdtm":"20240712 16:07"}]`,
		"blank":     "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePredictions(body)
			var parseErr *dasherr.ParseError
			assert.True(t, errors.As(err, &parseErr))
		})
	}
}

func TestParsePredictionsNonNumericRoute(t *testing.T) {
	_, err := ParsePredictions(`callback([{"rt":"BX","prdtm":"20240712 16:07"}])`)
	var parseErr *dasherr.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestFilterRoutesKeepsOrder(t *testing.T) {
	base := time.Date(2024, 7, 12, 16, 0, 0, 0, Eastern)
	arrivals := []Arrival{
		{RouteNumber: 166, ArrivalTime: base.Add(20 * time.Minute)},
		{RouteNumber: 22, ArrivalTime: base.Add(5 * time.Minute)},
		{RouteNumber: 128, ArrivalTime: base.Add(10 * time.Minute)},
	}

	got := FilterRoutes(arrivals, []int{128, 165, 166, 168})

	require.Len(t, got, 2)
	assert.Equal(t, 166, got[0].RouteNumber)
	assert.Equal(t, 128, got[1].RouteNumber)
}

func TestGetArrivalsSendsCredentials(t *testing.T) {
	var (
		gotUser, gotPass, gotAgent, gotStop, gotPath string
		gotAuth                                      bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotAuth = r.BasicAuth()
		gotAgent = r.UserAgent()
		gotStop = r.URL.Query().Get("stopid")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(onePrediction))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithThrottle(0))
	arrivals, err := c.GetArrivals(context.Background(), 21824)
	require.NoError(t, err)

	assert.Len(t, arrivals, 1)
	assert.True(t, gotAuth)
	assert.Equal(t, "njtapp", gotUser)
	assert.Equal(t, "8rg3rX8G", gotPass)
	assert.Equal(t, "okhttp/4.10.0", gotAgent)
	assert.Equal(t, "21824", gotStop)
	assert.Equal(t, "/NJTAppWS4/services/getMBNPredictions", gotPath)
}

func TestGetArrivalsWaitsAfterCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("callback([])"))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithThrottle(50*time.Millisecond))
	start := time.Now()
	_, err := c.GetArrivals(context.Background(), 31497)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestGetArrivalsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL), WithThrottle(0)).GetArrivals(context.Background(), 1)

	var fetchErr *dasherr.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusBadGateway, fetchErr.StatusCode)
}
