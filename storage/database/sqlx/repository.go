package sqlxrepos

import (
	"encoding/json"

	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jgfoster/PrairieLearn/core"
)

type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

// marshalJSON encodes m for a jsonb parameter. nil encodes as an empty object.
func marshalJSON(m map[string]interface{}) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", errors.Wrap(err, "encoding json")
	}
	return string(b), nil
}

func unmarshalJSON(j types.JSONText) (map[string]interface{}, error) {
	m := map[string]interface{}{}
	if len(j) == 0 {
		return m, nil
	}
	if err := j.Unmarshal(&m); err != nil {
		return nil, errors.Wrap(err, "decoding json")
	}
	if m == nil { // json null
		m = map[string]interface{}{}
	}
	return m, nil
}
