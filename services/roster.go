package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/sirupsen/logrus"

	"recruitreach/models"
)

// StaticRoster is a fixed, read-only list of recipients.
type StaticRoster struct {
	recipients []models.Recipient
}

func NewStaticRoster(recipients []models.Recipient) *StaticRoster {
	cp := make([]models.Recipient, len(recipients))
	copy(cp, recipients)
	return &StaticRoster{recipients: cp}
}

// Recipients returns a copy of the roster.
func (r *StaticRoster) Recipients(ctx context.Context) ([]models.Recipient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.Recipient, len(r.recipients))
	copy(out, r.recipients)
	return out, nil
}

// LoadRoster reads a JSON array of recipients. Entries with a malformed or
// duplicate email address are skipped with a warning.
func LoadRoster(path string, log *logrus.Entry) (*StaticRoster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read roster: %v", ErrConfiguration, err)
	}

	var raw []models.Recipient
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse roster %s: %v", ErrConfiguration, path, err)
	}

	seen := make(map[string]bool, len(raw))
	recipients := make([]models.Recipient, 0, len(raw))
	for i, r := range raw {
		r.Email = strings.TrimSpace(r.Email)
		if err := checkmail.ValidateFormat(r.Email); err != nil {
			log.WithFields(logrus.Fields{
				"index": i,
				"email": r.Email,
			}).Warn("Skipping roster entry with invalid email")
			continue
		}
		key := strings.ToLower(r.Email)
		if seen[key] {
			log.WithField("email", r.Email).Warn("Skipping duplicate roster entry")
			continue
		}
		seen[key] = true
		recipients = append(recipients, r)
	}

	log.WithFields(logrus.Fields{
		"path":       path,
		"recipients": len(recipients),
		"skipped":    len(raw) - len(recipients),
	}).Info("Loaded recipient roster")

	return &StaticRoster{recipients: recipients}, nil
}
