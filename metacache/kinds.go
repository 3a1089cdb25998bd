package metacache

import (
	"fmt"
	"strings"
)

// ObjectKind classifies a data object.
type ObjectKind int

// Object kinds, bound to the platform's integer codes.
const (
	ObjectKindNone      ObjectKind = 0
	ObjectKindTracking  ObjectKind = 1
	ObjectKindReference ObjectKind = 2
	ObjectKindEScan     ObjectKind = 3
)

var objectKindNames = map[ObjectKind]string{
	ObjectKindNone:      "NONE",
	ObjectKindTracking:  "TRACKING",
	ObjectKindReference: "REFERENCE",
	ObjectKindEScan:     "ESCAN",
}

// ParseObjectKind converts a stored code. Unknown codes match
// ErrInvalidArgument.
func ParseObjectKind(code int64) (ObjectKind, error) {
	k := ObjectKind(code)
	if _, ok := objectKindNames[k]; !ok || int64(k) != code {
		return 0, invalidArg("object kind", code, "unknown code")
	}
	return k, nil
}

// String returns the kind name.
func (k ObjectKind) String() string {
	if name, ok := objectKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ObjectKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k ObjectKind) MarshalText() ([]byte, error) {
	if _, ok := objectKindNames[k]; !ok {
		return nil, invalidArg("object kind", int(k), "unknown code")
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ObjectKind) UnmarshalText(text []byte) error {
	name := strings.ToUpper(string(text))
	for kind, n := range objectKindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return invalidArg("object kind", string(text), "unknown name")
}

// DataType is the storage type of a data element.
type DataType int

// Data types, bound to the platform's integer codes. Codes 6 and 7 are
// unassigned.
const (
	DataTypeText      DataType = 1
	DataTypeNumber    DataType = 2
	DataTypeDate      DataType = 3
	DataTypeCurrency  DataType = 4
	DataTypeYesNo     DataType = 5
	DataTypeFile      DataType = 8
	DataTypeState     DataType = 9
	DataTypePassword  DataType = 10
	DataTypeLongText  DataType = 11
	DataTypeTimestamp DataType = 12
	DataTypeNone      DataType = 13
	DataTypeLong      DataType = 14
)

var dataTypeNames = map[DataType]string{
	DataTypeText:      "TEXT",
	DataTypeNumber:    "NUMBER",
	DataTypeDate:      "DATE",
	DataTypeCurrency:  "CURRENCY",
	DataTypeYesNo:     "YES_NO",
	DataTypeFile:      "FILE",
	DataTypeState:     "STATE",
	DataTypePassword:  "PASSWORD",
	DataTypeLongText:  "LONG_TEXT",
	DataTypeTimestamp: "TIMESTAMP",
	DataTypeNone:      "NONE",
	DataTypeLong:      "LONG",
}

// ParseDataType converts a stored code. Unknown codes match
// ErrInvalidArgument.
func ParseDataType(code int64) (DataType, error) {
	t := DataType(code)
	if _, ok := dataTypeNames[t]; !ok || int64(t) != code {
		return 0, invalidArg("data type", code, "unknown code")
	}
	return t, nil
}

// String returns the type name.
func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t DataType) MarshalText() ([]byte, error) {
	if _, ok := dataTypeNames[t]; !ok {
		return nil, invalidArg("data type", int(t), "unknown code")
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(text []byte) error {
	name := strings.ToUpper(string(text))
	for dt, n := range dataTypeNames {
		if n == name {
			*t = dt
			return nil
		}
	}
	return invalidArg("data type", string(text), "unknown name")
}
