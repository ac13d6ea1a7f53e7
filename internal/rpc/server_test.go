package rpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avella/mailgate/internal/handler"
	"github.com/avella/mailgate/internal/model"
	"github.com/avella/mailgate/internal/rpc"
	"github.com/avella/mailgate/internal/store"
	"github.com/avella/mailgate/tests/testutil"
)

func newTestServer(t *testing.T, cfg *model.AppConfig) (*rpc.Server, store.Store) {
	t.Helper()
	st := testutil.NewTestStore(t)
	d := handler.NewDispatcher(st, zerolog.Nop())
	return rpc.NewServer(cfg, st, d, zerolog.Nop()), st
}

// run feeds newline-delimited requests through Serve and decodes one
// response per input line.
func run(t *testing.T, s *rpc.Server, lines ...string) []rpc.Response {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, s.Serve(context.Background(), in, &out))

	var responses []rpc.Response
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r rpc.Response
		require.NoError(t, dec.Decode(&r))
		responses = append(responses, r)
	}
	return responses
}

func TestServeUnknownTool(t *testing.T) {
	s, _ := newTestServer(t, &model.AppConfig{})

	resps := run(t, s, `{"id":1,"tool":"frobnicate"}`)
	require.Len(t, resps, 1)
	require.NotNil(t, resps[0].Error)
	assert.Equal(t, rpc.CodeUnknownTool, resps[0].Error.Code)
	assert.Equal(t, "1", string(resps[0].ID))
}

func TestServeMalformedLine(t *testing.T) {
	s, _ := newTestServer(t, &model.AppConfig{})

	resps := run(t, s,
		`{not json`,
		`{"id":2,"tool":"list_available_accounts"}`,
	)
	require.Len(t, resps, 2)
	require.NotNil(t, resps[0].Error)
	assert.Equal(t, rpc.CodeInvalidRequest, resps[0].Error.Code)
	assert.Nil(t, resps[1].Error, "the loop must survive a malformed line")
}

func TestServeAccountLifecycle(t *testing.T) {
	s, _ := newTestServer(t, &model.AppConfig{})

	add := `{"id":1,"tool":"add_email_account","params":{` +
		`"account_name":"work","full_name":"Test User","email_address":"w@example.com",` +
		`"incoming":{"host":"imap.example.com","port":993,"user_name":"w@example.com","password":"s1","use_ssl":true},` +
		`"outgoing":{"host":"smtp.example.com","port":587,"user_name":"w@example.com","password":"s2","start_tls":true}}}`

	resps := run(t, s, add, `{"id":2,"tool":"list_available_accounts"}`)
	require.Len(t, resps, 2)
	require.Nil(t, resps[0].Error)
	assert.Contains(t, resps[0].Result, "Successfully added email account 'work'")

	require.Nil(t, resps[1].Error)
	listJSON, err := json.Marshal(resps[1].Result)
	require.NoError(t, err)
	var accounts []model.Account
	require.NoError(t, json.Unmarshal(listJSON, &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, "work", accounts[0].Name)
	assert.Equal(t, "********", accounts[0].Incoming.Password, "passwords must leave masked")

	remove := `{"id":3,"tool":"remove_email_account","params":{"account_name":"work"}}`
	resps = run(t, s, remove, `{"id":4,"tool":"list_available_accounts"}`)
	require.Len(t, resps, 2)
	require.Nil(t, resps[0].Error)
	assert.Contains(t, resps[0].Result, "Successfully removed email account 'work'")

	listJSON, err = json.Marshal(resps[1].Result)
	require.NoError(t, err)
	accounts = nil
	require.NoError(t, json.Unmarshal(listJSON, &accounts))
	assert.Empty(t, accounts)
}

func TestServeUnknownAccount(t *testing.T) {
	s, _ := newTestServer(t, &model.AppConfig{})

	resps := run(t, s, `{"id":1,"tool":"get_emails_content","params":{"account_name":"nope","email_ids":["1"]}}`)
	require.Len(t, resps, 1)
	require.NotNil(t, resps[0].Error)
	assert.Equal(t, rpc.CodeUnknownAccount, resps[0].Error.Code)
}

func TestServeFolderManagementGate(t *testing.T) {
	s, _ := newTestServer(t, &model.AppConfig{})

	gated := []string{
		`{"id":1,"tool":"list_folders","params":{"account_name":"x"}}`,
		`{"id":2,"tool":"move_emails","params":{"account_name":"x","email_ids":["1"],"destination_folder":"A"}}`,
		`{"id":3,"tool":"create_label","params":{"account_name":"x","label_name":"L"}}`,
	}
	resps := run(t, s, gated...)
	require.Len(t, resps, 3)
	for _, r := range resps {
		require.NotNil(t, r.Error)
		assert.Equal(t, rpc.CodePermissionDenied, r.Error.Code)
	}
}

func TestServeAttachmentDownloadGate(t *testing.T) {
	s, _ := newTestServer(t, &model.AppConfig{})

	resps := run(t, s, `{"id":1,"tool":"download_attachment","params":{"account_name":"x","email_id":"1","attachment_name":"a.pdf","save_path":"/tmp/a.pdf"}}`)
	require.Len(t, resps, 1)
	require.NotNil(t, resps[0].Error)
	assert.Equal(t, rpc.CodePermissionDenied, resps[0].Error.Code)
}

func TestServeSendEmailValidation(t *testing.T) {
	s, _ := newTestServer(t, &model.AppConfig{})

	resps := run(t, s, `{"id":1,"tool":"send_email","params":{"account_name":"x","recipients":[],"subject":"s","body":"b"}}`)
	require.Len(t, resps, 1)
	require.NotNil(t, resps[0].Error)
	assert.Equal(t, rpc.CodeInvalidRequest, resps[0].Error.Code)
}

func TestServeSkipsBlankLines(t *testing.T) {
	s, _ := newTestServer(t, &model.AppConfig{})

	resps := run(t, s, "", "   ", `{"id":1,"tool":"list_available_accounts"}`)
	require.Len(t, resps, 1)
	assert.Nil(t, resps[0].Error)
}
