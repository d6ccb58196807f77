// Package retention prunes evidence records by age and by count.
//
// A pruning run has two phases. The age phase deletes records recorded more
// than RetentionDays ago. The count phase keeps the MaxRecords newest records
// and deletes the rest. Either phase is skipped when its limit is zero. With
// ArchiveBeforeDelete each phase first writes the affected records to
// ArchivePath as evidence-<phase>-<timestamp>.json.
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays:       365,
//	    Schedule:            "0 3 * * *",
//	    ArchiveBeforeDelete: true,
//	    ArchivePath:         "data/archives",
//	}, retention.WithLogger(logger))
//
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
//
// Prune runs both phases immediately; `ddsguard evidence prune` uses it.
// Start schedules runs with robfig/cron using standard five-field
// expressions. An empty Schedule disables scheduling.
package retention
