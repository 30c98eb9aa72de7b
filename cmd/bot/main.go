package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hullcraft.io/internal/logging"
	"hullcraft.io/internal/protocol"
)

// step is one scripted request of the demo build.
type step struct {
	Type     string
	TypeID   string
	Pos      [2]float64
	Rotation int
}

// demoShip is a cockpit on a hull spine with a thruster at the stern and
// cannons on the flanks.
var demoShip = []step{
	{Type: protocol.TypePlace, TypeID: "cockpit", Pos: [2]float64{0, -32}},
	{Type: protocol.TypePlace, TypeID: "hull", Pos: [2]float64{0, 0}},
	{Type: protocol.TypePlace, TypeID: "hull", Pos: [2]float64{0, 32}},
	{Type: protocol.TypePlace, TypeID: "cannon", Pos: [2]float64{-32, 0}},
	{Type: protocol.TypePlace, TypeID: "cannon", Pos: [2]float64{32, 0}},
	{Type: protocol.TypePlace, TypeID: "thruster", Pos: [2]float64{0, 64}},
	{Type: protocol.TypeValidate},
	{Type: protocol.TypeTest},
}

func main() {
	var (
		url   string
		name  string
		save  bool
		level string
	)
	cmd := &cobra.Command{
		Use:          "bot",
		Short:        "Connect to a builder server and assemble a demo ship",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(logging.Options{Level: level, Development: true})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			_, err = run(cmd.Context(), url, name, save, log)
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "ws://localhost:8080/v1/ws", "ws url")
	cmd.Flags().StringVar(&name, "name", "bot", "ship name")
	cmd.Flags().BoolVar(&save, "save", false, "SAVE the ship after a successful TEST")
	cmd.Flags().StringVar(&level, "log-level", "info", "log level")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// run performs the demo build and returns the final RESULT.
func run(ctx context.Context, url, name string, save bool, log *zap.Logger) (protocol.ResultMsg, error) {
	var last protocol.ResultMsg
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return last, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "bot",
		ShipName:        name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		return last, fmt.Errorf("send HELLO: %w", err)
	}
	var welcome protocol.WelcomeMsg
	if err := readTyped(conn, protocol.TypeWelcome, &welcome); err != nil {
		return last, err
	}
	if err := readTyped(conn, protocol.TypeCatalog, &protocol.CatalogMsg{}); err != nil {
		return last, err
	}
	log.Info("WELCOME", zap.String("session", welcome.SessionID), zap.String("ship", welcome.ShipID))

	script := demoShip
	if save {
		script = append(append([]step(nil), demoShip...), step{Type: protocol.TypeSave})
	}
	for i, s := range script {
		if ctx.Err() != nil {
			return last, ctx.Err()
		}
		req := protocol.RequestMsg{
			Type:            s.Type,
			ProtocolVersion: protocol.Version,
			ReqID:           strconv.Itoa(i + 1),
			TypeID:          s.TypeID,
			Rotation:        s.Rotation,
		}
		if s.Type == protocol.TypePlace {
			pos := s.Pos
			req.Pos = &pos
		}
		if err := conn.WriteJSON(req); err != nil {
			return last, fmt.Errorf("send %s: %w", s.Type, err)
		}
		if err := readTyped(conn, protocol.TypeResult, &last); err != nil {
			return last, err
		}
		if !last.OK {
			log.Warn("request failed", zap.String("for", last.For), zap.String("code", last.Code), zap.String("msg", last.Message))
			return last, fmt.Errorf("%s failed: %s", last.For, last.Code)
		}
		log.Info("ok", zap.String("for", last.For), zap.Uint32("block", last.Block), zap.Int("connections", last.Connections))
	}
	return last, nil
}

func readTyped(conn *websocket.Conn, want string, v any) error {
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read %s: %w", want, err)
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return err
	}
	if base.Type != want {
		return fmt.Errorf("expected %s, got %s", want, base.Type)
	}
	return json.Unmarshal(msg, v)
}
