package scheduler

// NormalizeConflictPair orders two task identifiers so that (A, B) and (B, A)
// address the same stored conflict. The smaller identifier always comes first.
func NormalizeConflictPair(taskA, taskB string) (string, string) {
	if taskB < taskA {
		return taskB, taskA
	}
	return taskA, taskB
}
