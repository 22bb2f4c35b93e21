package metrics

// StepDurationBuckets defines latency buckets in seconds for whole step runs.
var StepDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// TransferSizeBucketBoundaries defines payload size buckets in bytes for
// artifact downloads and uploads.
var TransferSizeBucketBoundaries = []float64{1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000, 1_000_000_000}
