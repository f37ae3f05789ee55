package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

var (
	ErrInvalidImportMode = errors.New(`mode must be "merge" or "replace"`)
	ErrMissingImportData = errors.New(`request must include "data"`)
)

// Archive exports and imports the member directory and event log.
type Archive struct {
	members store.MemberDirectory
	events  store.EventLogStore
	archive store.ArchiveStore
	now     func() time.Time
	logger  logrus.FieldLogger
}

func NewArchive(members store.MemberDirectory, events store.EventLogStore, archive store.ArchiveStore, logger logrus.FieldLogger) *Archive {
	return &Archive{
		members: members,
		events:  events,
		archive: archive,
		now:     time.Now,
		logger:  logger.WithField("component", "archive"),
	}
}

func (a *Archive) Export(ctx context.Context, includeEvents bool) (types.ExportDocument, error) {
	users, err := a.members.List(ctx)
	if err != nil {
		return types.ExportDocument{}, fmt.Errorf("export users: %w", err)
	}

	doc := types.ExportDocument{
		Metadata: types.ExportMetadata{
			Timestamp:     a.now().UTC(),
			Version:       types.ExportVersion,
			IncludeEvents: includeEvents,
		},
		Users: users,
	}
	if includeEvents {
		doc.Events, err = a.events.All(ctx)
		if err != nil {
			return types.ExportDocument{}, fmt.Errorf("export events: %w", err)
		}
	}
	return doc, nil
}

// Import loads req.Data in one transaction. Rows that fail individually are
// reported in the result and do not abort the import; a failure to clear the
// tables in replace mode or to commit does.
func (a *Archive) Import(ctx context.Context, req types.ImportRequest) (types.ImportResult, error) {
	if req.Data == nil {
		return types.ImportResult{}, ErrMissingImportData
	}
	mode := req.Mode
	if mode == "" {
		mode = types.ImportMerge
	}
	if mode != types.ImportMerge && mode != types.ImportReplace {
		return types.ImportResult{}, ErrInvalidImportMode
	}
	skipDuplicates := req.SkipDuplicates == nil || *req.SkipDuplicates
	dedup := skipDuplicates && mode == types.ImportMerge

	var res types.ImportResult
	err := a.archive.Import(ctx, func(ctx context.Context, b store.ArchiveBatch) error {
		res = types.ImportResult{
			Users:  types.ImportCounts{Errors: []types.ImportError{}},
			Events: types.ImportCounts{Errors: []types.ImportError{}},
		}

		if mode == types.ImportReplace {
			if err := b.Truncate(ctx); err != nil {
				return err
			}
		}

		for _, u := range req.Data.Users {
			card := u.CardNumber
			if dedup {
				exists, err := b.MemberExists(ctx, card)
				if err != nil {
					res.Users.Errors = append(res.Users.Errors, types.ImportError{CardNumber: &card, Error: err.Error()})
					continue
				}
				if exists {
					res.Users.Skipped++
					continue
				}
			}
			u.ID = 0
			if err := b.InsertMember(ctx, u); err != nil {
				res.Users.Errors = append(res.Users.Errors, types.ImportError{CardNumber: &card, Error: err.Error()})
				continue
			}
			res.Users.Added++
		}

		for _, e := range req.Data.Events {
			eventID := e.EventID
			if dedup {
				exists, err := b.EventExists(ctx, e.ControllerID, e.EventID, e.Timestamp)
				if err != nil {
					res.Events.Errors = append(res.Events.Errors, types.ImportError{EventID: &eventID, Error: err.Error()})
					continue
				}
				if exists {
					res.Events.Skipped++
					continue
				}
			}
			e.ID = 0
			if err := b.InsertEvent(ctx, e); err != nil {
				res.Events.Errors = append(res.Events.Errors, types.ImportError{EventID: &eventID, Error: err.Error()})
				continue
			}
			res.Events.Added++
		}
		return nil
	})
	if err != nil {
		return types.ImportResult{}, fmt.Errorf("import: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"mode":           mode,
		"users_added":    res.Users.Added,
		"users_skipped":  res.Users.Skipped,
		"events_added":   res.Events.Added,
		"events_skipped": res.Events.Skipped,
	}).Info("import complete")
	return res, nil
}
