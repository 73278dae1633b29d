package dispatch

import "time"

func secondsToDuration(s int) time.Duration { return time.Duration(s) * time.Second }
func millisToDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
