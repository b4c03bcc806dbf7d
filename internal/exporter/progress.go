package exporter

// ProgressEvent 工作簿汇总进度（0~100）
type ProgressEvent struct {
	Percent int
	Stage   string
}

func reportProgress(progress func(ProgressEvent), percent int, stage string) {
	if progress == nil {
		return
	}
	percent = max(0, min(percent, 100))
	progress(ProgressEvent{
		Percent: percent,
		Stage:   stage,
	})
}
