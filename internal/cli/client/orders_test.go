package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useFakeDesk(t *testing.T, routes map[string]string) *fakeAPI {
	t.Helper()
	useConfigDir(t)
	api, url := newFakeAPI(t, routes)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: url, APIToken: "tok"}))
	t.Setenv(envAPIToken, "")
	t.Setenv(envAPIURL, "")
	return api
}

func TestOrdersList(t *testing.T) {
	api := useFakeDesk(t, map[string]string{
		"/demo/order/search/2": `{"count":12,"list":[{"id":3},{"id":4}]}`,
	})

	cmd := OrdersCmd()
	cmd.SetArgs([]string{"list", "--page", "2", "--term", "ana", "--by", "patient"})
	require.NoError(t, cmd.Execute())

	reqs := api.seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/demo/order/search/2", reqs[0].URL.Path)
	assert.JSONEq(t, `{"searchBy":"patient","term":"ana","exactMatch":false}`, api.body(0))
}

func TestOrdersGet_WithEvents(t *testing.T) {
	api := useFakeDesk(t, map[string]string{
		"/demo/order/view/5":   `{"id":5}`,
		"/demo/order/events/5": `[{"id":1,"name":"Created"}]`,
	})

	cmd := OrdersCmd()
	cmd.SetArgs([]string{"get", "5", "--events"})
	require.NoError(t, cmd.Execute())

	reqs := api.seen()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/demo/order/events/5", reqs[1].URL.Path)
}

func TestOrdersAction(t *testing.T) {
	api := useFakeDesk(t, map[string]string{
		"/demo/actions/release/8": `true`,
	})

	cmd := OrdersCmd()
	cmd.SetArgs([]string{"action", "8", "send-to-lis"})
	require.NoError(t, cmd.Execute())

	reqs := api.seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer tok", reqs[0].Header.Get("Authorization"))
}

func TestOrdersAction_Unknown(t *testing.T) {
	api := useFakeDesk(t, map[string]string{})

	cmd := OrdersCmd()
	cmd.SetArgs([]string{"action", "8", "launch"})
	cmd.SilenceUsage = true
	require.Error(t, cmd.Execute())
	assert.Empty(t, api.seen())
}

func TestOrdersCreate_BadFile(t *testing.T) {
	useFakeDesk(t, map[string]string{})
	path := filepath.Join(t.TempDir(), "order.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	cmd := OrdersCmd()
	cmd.SetArgs([]string{"create", "--file", path})
	cmd.SilenceUsage = true
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = parseID("0")
	assert.Error(t, err)
	_, err = parseID("x")
	assert.Error(t, err)
}

func TestNewDeskWithCmd_RequiresToken(t *testing.T) {
	useConfigDir(t)
	t.Setenv(envAPIToken, "")
	t.Setenv(envAPIURL, "")

	_, err := NewDeskWithCmd(nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), envAPIToken)

	desk, err := NewDeskWithCmd(nil, false)
	require.NoError(t, err)
	defer desk.Close()
	assert.Equal(t, SourceNone, desk.Source)
	assert.Equal(t, defaultAPIURL, desk.URL)
}
