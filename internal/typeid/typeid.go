package typeid

import "go.jetify.com/typeid/v2"

const (
	PrefixShape = "shape"
	PrefixEdit  = "edit"
	PrefixUser  = "user"
	PrefixRoom  = "room"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewShapeID() string { return New(PrefixShape) }
func NewEditID() string { return New(PrefixEdit) }
func NewUserID() string { return New(PrefixUser) }
func NewRoomID() string { return New(PrefixRoom) }
