package gameserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/combat"
)

// Client is a typed Arena client. Errors are mapped back onto the gameerr
// sentinels with FromStatus.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, name string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+name, in, out, opts...); err != nil {
		return nil, FromStatus(err)
	}
	return out, nil
}

func (c *Client) character(ctx context.Context, name string, kv map[string]string) (*character.Character, error) {
	out, err := c.invoke(ctx, name, Request(kv))
	if err != nil {
		return nil, err
	}
	return DecodeCharacter(out), nil
}

// CreateCharacter creates a level-1 record on classID.
func (c *Client) CreateCharacter(ctx context.Context, playerID, classID string) (*character.Character, error) {
	return c.character(ctx, "CreateCharacter", map[string]string{"player_id": playerID, "class_id": classID})
}

// GetCharacter fetches the player's record.
func (c *Client) GetCharacter(ctx context.Context, playerID string) (*character.Character, error) {
	return c.character(ctx, "GetCharacter", map[string]string{"player_id": playerID})
}

// Rebirth resets a max-level player and raises the rebirth multiplier.
func (c *Client) Rebirth(ctx context.Context, playerID string) (*character.Character, error) {
	return c.character(ctx, "Rebirth", map[string]string{"player_id": playerID})
}

// Rest restores the player's hp and mp outside an encounter.
func (c *Client) Rest(ctx context.Context, playerID string) (*character.Character, error) {
	return c.character(ctx, "Rest", map[string]string{"player_id": playerID})
}

// StartEncounter opens an encounter at locationID.
func (c *Client) StartEncounter(ctx context.Context, playerID, locationID string) (combat.View, error) {
	out, err := c.invoke(ctx, "StartEncounter", Request(map[string]string{
		"player_id": playerID, "location_id": locationID,
	}))
	if err != nil {
		return combat.View{}, err
	}
	return DecodeView(out), nil
}

// SubmitAction plays one action in the session identified by handle.
func (c *Client) SubmitAction(ctx context.Context, handle, actorID string, a combat.Action) (combat.Result, error) {
	out, err := c.invoke(ctx, "SubmitAction", ActionRequest(handle, actorID, a))
	if err != nil {
		return combat.Result{}, err
	}
	return DecodeResult(out), nil
}

// Describe returns the current view of a session.
func (c *Client) Describe(ctx context.Context, handle, actorID string) (combat.View, error) {
	out, err := c.invoke(ctx, "Describe", Request(map[string]string{
		"handle": handle, "actor_id": actorID,
	}))
	if err != nil {
		return combat.View{}, err
	}
	return DecodeView(out), nil
}
