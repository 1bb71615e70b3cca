package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"pyquest/config"
	"pyquest/database"
	"pyquest/events"
	"pyquest/models"
	"pyquest/service"
)

// GrantArgs is a parsed `grant` command line
type GrantArgs struct {
	UserID      string
	Diamonds    int64
	Experience  int64
	Type        models.TransactionType
	Description string
}

// ParseGrantArgs parses: <userID> <diamonds> [experience] [type] [description...]
func ParseGrantArgs(args []string) (GrantArgs, error) {
	if len(args) < 2 {
		return GrantArgs{}, fmt.Errorf("usage: pyquest grant <userID> <diamonds> [experience] [type] [description]")
	}

	parsed := GrantArgs{
		UserID: args[0],
		Type:   models.TransactionTypeAdminAdjustment,
	}

	diamonds, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return GrantArgs{}, fmt.Errorf("invalid diamonds %q: %w", args[1], err)
	}
	parsed.Diamonds = diamonds

	if len(args) > 2 {
		experience, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return GrantArgs{}, fmt.Errorf("invalid experience %q: %w", args[2], err)
		}
		parsed.Experience = experience
	}
	if len(args) > 3 {
		parsed.Type = models.TransactionType(strings.ToUpper(args[3]))
		if !parsed.Type.IsCredit() {
			return GrantArgs{}, fmt.Errorf("%q is not a credit transaction type", args[3])
		}
	}
	if len(args) > 4 {
		parsed.Description = strings.Join(args[4:], " ")
	}

	return parsed, nil
}

// RunGrant applies one reward from the command line
func RunGrant(ctx context.Context, args []string) error {
	parsed, err := ParseGrantArgs(args)
	if err != nil {
		return err
	}

	cfg := config.Get()
	ConfigureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	svc, err := newServices(cfg, db, events.NewBus())
	if err != nil {
		return err
	}

	transaction, err := svc.rewards.GrantReward(ctx, service.RewardGrant{
		UserID:      parsed.UserID,
		Diamonds:    parsed.Diamonds,
		Experience:  parsed.Experience,
		Type:        parsed.Type,
		Description: parsed.Description,
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"userID":        transaction.UserID,
		"transactionID": transaction.ID,
		"balanceAfter":  transaction.BalanceAfter,
	}).Info("Reward granted")
	return nil
}
