// Package harvest drives collections through discovery and acquisition.
//
// A Coordinator opens one page session for the run and lends it to a
// Harvester for one collection at a time. The Harvester scans every listing
// page of the collection, normalizes each href and acquires the resulting
// target, tallying outcomes into a CollectionReport:
//
//	h := harvest.NewHarvester(cfg, harvest.Deps{
//		Normalizer: n,
//		Acquirer:   acquirer,
//		Dirs:       storage.NewManager(),
//		Logger:     log,
//	})
//	c := harvest.NewCoordinator(cfg, h, opener, storage.NewManager(), log, runID)
//	summary, err := c.Run(ctx)
//
// Only configuration, base directory and session failures end a run early.
// Everything else is logged and counted.
package harvest
