package selection

import (
    "errors"
    "fmt"

    "github.com/iliyamo/harbor-booking/internal/model"
)

// ActionKind tags a UI command.
type ActionKind string

const (
    ActionSelectLeg        ActionKind = "select_leg"
    ActionToggleLeg        ActionKind = "toggle_leg"
    ActionChangeSeatOption ActionKind = "change_seat_option"
    ActionDeselectLeg      ActionKind = "deselect_leg"
)

// Command is one user interaction on the page.  Which fields are read
// depends on Kind:
//
//  select_leg, toggle_leg – CardID
//  change_seat_option     – CardID, OptionIndex
//  deselect_leg           – Direction
type Command struct {
    Kind        ActionKind      `json:"action"`
    CardID      string          `json:"card_id,omitempty"`
    OptionIndex int             `json:"option_index,omitempty"`
    Direction   model.Direction `json:"direction,omitempty"`
}

var (
    // ErrUnknownCard is returned for a command naming a card that is not on
    // the page.
    ErrUnknownCard = errors.New("unknown schedule card")
    // ErrUnknownAction is returned for a command with an unrecognized kind.
    ErrUnknownAction = errors.New("unknown action")
    // ErrInvalidDirection is returned for deselect_leg without a valid direction.
    ErrInvalidDirection = errors.New("invalid direction")
)

// Dispatch routes cmd to the matching operation.  Errors only describe a
// malformed command; rejected selections are silent no-ops.
func (a *Aggregator) Dispatch(cmd Command) error {
    switch cmd.Kind {
    case ActionSelectLeg:
        return a.SelectLeg(cmd.CardID)
    case ActionToggleLeg:
        return a.ToggleLeg(cmd.CardID)
    case ActionChangeSeatOption:
        return a.ChangeSeatOption(cmd.CardID, cmd.OptionIndex)
    case ActionDeselectLeg:
        d, ok := model.ParseDirection(string(cmd.Direction))
        if !ok {
            return ErrInvalidDirection
        }
        a.DeselectLeg(d)
        return nil
    default:
        return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Kind)
    }
}
