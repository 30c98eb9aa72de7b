package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"hullcraft.io/internal/protocol"
	"hullcraft.io/internal/sim/ship"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.Compile(filepath.Join("schemas", name))
	require.NoError(t, err, "compile %s", name)
	return s
}

// roundTrip validates what the Go types actually marshal to.
func roundTrip(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var doc any
	require.NoError(t, json.Unmarshal(b, &doc))
	return doc
}

func TestSchemas_ValidateServerMessages(t *testing.T) {
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "S1",
		ShipID:          "7f0c1a52-5d5c-4f57-9d3e-0b7c1c1e9a01",
		GridSize:        32,
		Envelope:        protocol.Envelope{HalfWidth: 480, HalfHeight: 320},
		CatalogDigest:   "deadbeef",
		BlockTypes:      9,
	}
	require.NoError(t, compile(t, "welcome.schema.json").Validate(roundTrip(t, welcome)))

	resultSchema := compile(t, "result.schema.json")
	ok := protocol.ResultMsg{
		Type: protocol.TypeResult, ProtocolVersion: protocol.Version,
		ReqID: "r1", For: protocol.TypeStats, OK: true,
		Stats: &ship.Stats{Mass: 18, BlockCount: 2},
	}
	require.NoError(t, resultSchema.Validate(roundTrip(t, ok)))

	report := protocol.ResultMsg{
		Type: protocol.TypeResult, ProtocolVersion: protocol.Version,
		ReqID: "r2", For: protocol.TypeValidate, OK: true,
		Report: &ship.IntegrityReport{Issues: []string{ship.IssueMissingPropulsion}},
	}
	require.NoError(t, resultSchema.Validate(roundTrip(t, report)))

	missingCode := protocol.ResultMsg{
		Type: protocol.TypeResult, ProtocolVersion: protocol.Version,
		ReqID: "r3", For: protocol.TypePlace,
	}
	require.Error(t, resultSchema.Validate(roundTrip(t, missingCode)))
}

func TestValidateRequest(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"place", `{"type":"PLACE","protocol_version":"1.0","req_id":"1","type_id":"hull","pos":[0,32],"snap":true}`, true},
		{"place without pos", `{"type":"PLACE","protocol_version":"1.0","req_id":"1","type_id":"hull"}`, false},
		{"remove by pos", `{"type":"REMOVE","protocol_version":"1.0","req_id":"2","pos":[0,0]}`, true},
		{"remove by id", `{"type":"REMOVE","protocol_version":"1.0","req_id":"2","block":3}`, true},
		{"remove without target", `{"type":"REMOVE","protocol_version":"1.0","req_id":"2"}`, false},
		{"connect", `{"type":"CONNECT","protocol_version":"1.0","req_id":"3","block":1,"peer":2,"point":1,"peer_point":3}`, true},
		{"negative point", `{"type":"CONNECT","protocol_version":"1.0","req_id":"3","block":1,"peer":2,"point":-1}`, false},
		{"stats", `{"type":"STATS","protocol_version":"1.0","req_id":"4"}`, true},
		{"load needs id", `{"type":"LOAD","protocol_version":"1.0","req_id":"5"}`, false},
		{"unknown type", `{"type":"WARP","protocol_version":"1.0","req_id":"6"}`, false},
		{"missing req id", `{"type":"STATS","protocol_version":"1.0"}`, false},
		{"not json", `{"type":`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := protocol.ValidateRequest([]byte(tc.raw))
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestValidateHello(t *testing.T) {
	require.NoError(t, protocol.ValidateHello([]byte(`{"type":"HELLO","protocol_version":"1.0","client_name":"ui"}`)))
	require.Error(t, protocol.ValidateHello([]byte(`{"type":"HELLO"}`)))
	require.Error(t, protocol.ValidateHello([]byte(`{"type":"PLACE","protocol_version":"1.0"}`)))
}
