package predict

import (
	"strconv"
	"strings"
)

// DecomposeLabel splits an underscore-compound class name into its
// equipment-type fields: "valve_left_2" yields ("valve", "left", 2).
//
// The taxonomy is a soft convention, not a contract, so decomposition
// never fails: a bare label has an empty orientation and nil modification,
// and a non-numeric third part leaves the modification nil. Labels with
// more than three parts keep everything past the second underscore as the
// (non-numeric) third part.
func DecomposeLabel(className string) (eqType, orientation string, modification *int) {
	parts := strings.SplitN(className, "_", 3)

	eqType = parts[0]
	if len(parts) > 1 {
		orientation = parts[1]
	}
	if len(parts) > 2 {
		if v, err := strconv.Atoi(parts[2]); err == nil {
			modification = &v
		}
	}
	return eqType, orientation, modification
}
