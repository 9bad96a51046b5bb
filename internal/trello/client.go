// Package trello reads card histories from Trello boards, treating each list
// a card moves through as a workflow state.
package trello

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/adlio/trello"
	"github.com/danielolaszy/kanban/internal/config"
	"github.com/danielolaszy/kanban/internal/logging"
	"github.com/danielolaszy/kanban/internal/tracker"
	"github.com/danielolaszy/kanban/pkg/models"
)

// Client handles interactions with the Trello API
type Client struct {
	client      *trello.Client
	doneStates  []string
	concurrency int
	limiter     *tracker.Limiter
	log         *slog.Logger
}

// NewClient creates a new Trello client
func NewClient(cfg *config.Config) (*Client, error) {
	if err := config.ValidateTrelloConfig(cfg); err != nil {
		return nil, err
	}

	logging.Debug("trello configuration",
		"api_key", logging.MaskSensitive(cfg.Trello.APIKey),
		"token", logging.MaskSensitive(cfg.Trello.Token))

	return &Client{
		client:      trello.NewClient(cfg.Trello.APIKey, cfg.Trello.Token),
		doneStates:  cfg.Kanban.DoneStates,
		concurrency: cfg.Kanban.Concurrency,
		limiter:     tracker.NewLimiter(cfg.Kanban.RequestsPerSecond, cfg.Kanban.Concurrency),
		log:         logging.For("trello"),
	}, nil
}

// Name identifies the tracker in cache keys and logs.
func (c *Client) Name() string {
	return "trello"
}

// FetchIssues returns the cards of the named board that last moved into a
// done list within the range, with their list moves as state changes.
func (c *Client) FetchIssues(ctx context.Context, boardName string, rng models.Range) ([]models.RawIssue, error) {
	client := c.client.WithContext(ctx)
	board, err := c.findBoard(client, boardName)
	if err != nil {
		return nil, err
	}

	// Archived cards are finished work too
	cards, err := board.GetCards(trello.Arguments{"filter": "all"})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cards for board '%s': %v", boardName, err)
	}

	converted := make([]*models.RawIssue, len(cards))
	err = tracker.ForEach(ctx, cards, c.concurrency, c.limiter, func(ctx context.Context, i int, card *trello.Card) error {
		card.SetClient(client.WithContext(ctx))
		actions, err := card.GetListChangeActions()
		if err != nil {
			return fmt.Errorf("failed to fetch actions for card '%s': %v", card.Name, err)
		}

		raw := CardToRawIssue(boardName, card.IDShort, card.CreatedAt(), actions, c.doneStates)
		finished, ok := finishedAt(raw)
		if ok && rng.Contains(finished) {
			converted[i] = &raw
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var result []models.RawIssue
	for _, raw := range converted {
		if raw != nil {
			result = append(result, *raw)
		}
	}

	c.log.Debug("found cards in range", "board", boardName, "range", rng.String(), "cards", len(cards), "count", len(result))
	return result, nil
}

// findBoard looks the board up among those of the token's member. Boards
// returned are bound to client and so to its context.
func (c *Client) findBoard(client *trello.Client, boardName string) (*trello.Board, error) {
	member, err := client.GetMember("me", trello.Defaults())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Trello member: %v", err)
	}

	boards, err := member.GetBoards(trello.Defaults())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Trello boards: %v", err)
	}

	for _, b := range boards {
		if strings.EqualFold(b.Name, boardName) {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: board '%s'", tracker.ErrProjectNotFound, boardName)
}

// CardToRawIssue turns a card's list moves into state changes, oldest first.
// Every move into one of doneStates also records a resolution.
func CardToRawIssue(boardName string, idShort int, created time.Time, actions []*trello.Action, doneStates []string) models.RawIssue {
	moves := make([]*trello.Action, 0, len(actions))
	for _, action := range actions {
		if action.Data == nil || action.Data.ListBefore == nil || action.Data.ListAfter == nil {
			continue
		}
		moves = append(moves, action)
	}
	sort.SliceStable(moves, func(i, j int) bool {
		return moves[i].Date.Before(moves[j].Date)
	})

	raw := models.RawIssue{
		ID:      fmt.Sprintf("%s#%d", boardName, idShort),
		Project: boardName,
		Created: created,
	}
	for _, move := range moves {
		from, to := move.Data.ListBefore.Name, move.Data.ListAfter.Name
		deltas := []models.FieldDelta{models.StateDelta(from, to)}
		if isDone(to, doneStates) {
			deltas = append(deltas, models.FieldDelta{Field: models.ResolvedField, Old: from, New: to})
		}
		raw.Events = append(raw.Events, models.ChangeEvent{Timestamp: move.Date, Deltas: deltas})
	}
	return raw
}

// finishedAt returns when the card moved into a done list, provided it has
// not left it since.
func finishedAt(raw models.RawIssue) (time.Time, bool) {
	if len(raw.Events) == 0 {
		return time.Time{}, false
	}
	last := raw.Events[len(raw.Events)-1]
	for _, delta := range last.Deltas {
		if delta.Field == models.ResolvedField {
			return last.Timestamp, true
		}
	}
	return time.Time{}, false
}

func isDone(list string, doneStates []string) bool {
	for _, state := range doneStates {
		if strings.EqualFold(strings.TrimSpace(list), state) {
			return true
		}
	}
	return false
}
