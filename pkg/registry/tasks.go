package registry

import "path/filepath"

// PansharpTask is the tuple handed to the pan-sharpening collaborator.
// Skip marks pass-through assets the collaborator must not touch.
type PansharpTask struct {
	MulPath    string
	PanPath    string
	OutputPath string
	Method     string
	Skip       bool
}

// CogTask is the tuple handed to the COG-conversion collaborator. The
// Requested and DeleteSource flags come from configuration and are
// carried opaque; the scan engine does not interpret them.
type CogTask struct {
	InputPath    string
	OutputPath   string
	Requested    bool
	DeleteSource bool
}

// PansharpTasks returns one task per pair plus one skipped task per
// pass-through record, in export order.
func (r *Registry) PansharpTasks(method string) []PansharpTask {
	var tasks []PansharpTask
	for _, rec := range r.Export() {
		switch rec.Status {
		case StatusPaired:
			tasks = append(tasks, PansharpTask{
				MulPath:    rec.MulPath,
				PanPath:    rec.PanPath,
				OutputPath: rec.OutputPath,
				Method:     method,
			})
		case StatusPassthrough:
			tasks = append(tasks, PansharpTask{
				OutputPath: rec.OutputPath,
				Method:     method,
				Skip:       true,
			})
		}
	}
	return tasks
}

// CogTasks returns one task per pansharp output, in export order. The
// COG output sits next to its input.
func (r *Registry) CogTasks(requested, deleteSource bool) []CogTask {
	var tasks []CogTask
	for _, rec := range r.Export() {
		switch rec.Status {
		case StatusPaired, StatusPassthrough:
			tasks = append(tasks, CogTask{
				InputPath:    rec.OutputPath,
				OutputPath:   filepath.Join(filepath.Dir(rec.OutputPath), rec.CogPath),
				Requested:    requested,
				DeleteSource: deleteSource,
			})
		}
	}
	return tasks
}
