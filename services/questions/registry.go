package questionsvc

import (
	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/course"
	"github.com/jgfoster/PrairieLearn/core/question"
	"github.com/jgfoster/PrairieLearn/core/variant"
)

// NewDefaultRegistry registers the built-in question types.
func NewDefaultRegistry(store course.FileStore, conf *core.Config, logger core.Logger) *variant.Registry {
	r := variant.NewRegistry()
	r.Register(question.TypeMultipleChoice, MultipleChoice{})
	r.Register(question.TypeFile, NewFile(store))
	r.Register(question.TypeFreeform, NewFreeform(conf.Variant.WorkerCommand, logger))
	return r
}
