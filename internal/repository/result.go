package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
)

const (
	tallyKey  = "results:tally"
	recentKey = "results:recent"

	// RecentLimit - how many results the recent list keeps.
	RecentLimit = 100
)

const (
	fieldAWins   = "a_wins"
	fieldBWins   = "b_wins"
	fieldDraws   = "draw"
	fieldForfeit = "forfeit"
)

var ErrUnrecordableResult = errors.New("result has no final outcome")

type ResultRepository interface {
	Save(ctx context.Context, result entity.Result) error
	Tally(ctx context.Context) (entity.Tally, error)
	Recent(ctx context.Context, limit int64) ([]entity.Result, error)
}

type dbResult struct {
	client *redis.Client
}

func NewResultRepository(client *redis.Client) ResultRepository {
	return &dbResult{
		client: client,
	}
}

func (that *dbResult) Save(ctx context.Context, result entity.Result) error {
	var field string
	switch result.Outcome {
	case entity.OutcomeAWins:
		field = fieldAWins
	case entity.OutcomeBWins:
		field = fieldBWins
	case entity.OutcomeDraw:
		field = fieldDraws
	default:
		return fmt.Errorf("%w: %s", ErrUnrecordableResult, result.Outcome)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal result: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, tallyKey, field, 1)
		if result.Reason == entity.ReasonForfeit {
			pipe.HIncrBy(ctx, tallyKey, fieldForfeit, 1)
		}
		pipe.LPush(ctx, recentKey, resultJSON)
		pipe.LTrim(ctx, recentKey, 0, RecentLimit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	return nil
}

func (that *dbResult) Tally(ctx context.Context) (entity.Tally, error) {
	fields, err := that.client.HGetAll(ctx, tallyKey).Result()
	if err != nil {
		return entity.Tally{}, fmt.Errorf("failed to get tally: %w", err)
	}

	var tally entity.Tally
	counters := map[string]*int64{
		fieldAWins:   &tally.AWins,
		fieldBWins:   &tally.BWins,
		fieldDraws:   &tally.Draws,
		fieldForfeit: &tally.Forfeits,
	}

	for name, value := range fields {
		counter, ok := counters[name]
		if !ok {
			continue
		}

		if *counter, err = strconv.ParseInt(value, 10, 64); err != nil {
			return entity.Tally{}, fmt.Errorf("invalid tally field %s: %w", name, err)
		}
	}

	return tally, nil
}

func (that *dbResult) Recent(ctx context.Context, limit int64) ([]entity.Result, error) {
	if limit <= 0 || limit > RecentLimit {
		limit = RecentLimit
	}

	values, err := that.client.LRange(ctx, recentKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent results: %w", err)
	}

	results := make([]entity.Result, 0, len(values))
	for _, value := range values {
		var result entity.Result
		if err = json.Unmarshal([]byte(value), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		results = append(results, result)
	}

	return results, nil
}
