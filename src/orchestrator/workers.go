package orchestrator

// Worker-pool sizing. The worker count defaults to half the processing
// units, clamped to [1,8]; an explicit override wins. Compression threads
// per job are the remaining units divided across workers, as a cooperative
// capacity plan rather than an enforced limit.

const maxWorkers = 8

func autoWorkers(explicit, cpu int) int {
	if explicit > 0 {
		return explicit
	}
	return clamp(1, cpu/2, maxWorkers)
}

func compThreadsFor(workers, cpu int) int {
	if workers < 1 {
		workers = 1
	}
	if t := cpu/workers - 1; t > 1 {
		return t
	}
	return 1
}

func clamp(lo, x, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
