// Package drift contains the core components of Drift, an engine for lazy,
// partitioned data processing. A Dataset describes a chain of deferred
// transformations over partitioned rows; calling an action materializes only
// the partitions that action needs, running partition tasks in parallel and
// redistributing rows across partitions wherever a grouping, joining or
// sorting step requires it. This root package defines the full public API;
// data enters the engine through the datasource subpackages.
package drift
