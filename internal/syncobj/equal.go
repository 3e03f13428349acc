package syncobj

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/rs/zerolog/log"
)

// Equal compares two values structurally through their JSON encoding.
// encoding/json sorts map keys, so maps compare independent of order.
// Values that cannot be encoded, such as NaN floats, are compared by
// reflection and then by their Go syntax representation, so an unencodable
// value still equals itself.
func Equal(a, b Value) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		err := errA
		if err == nil {
			err = errB
		}
		log.Warn().Err(err).Str("module", "syncobj").Msg("value not encodable, comparing by reflection")
		return reflect.DeepEqual(a, b) || fmt.Sprintf("%#v", a) == fmt.Sprintf("%#v", b)
	}
	return bytes.Equal(ab, bb)
}
