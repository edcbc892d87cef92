package event

import "fmt"

// Key is a physical key, identified by its USB HID usage code. SDL scancodes
// use the same numbering, so platform code converts them directly.
type Key int

const (
	KeyUnknown   Key = 0
	KeyA         Key = 4
	KeyC         Key = 6
	KeyQ         Key = 20
	KeyV         Key = 25
	KeyX         Key = 27
	KeyY         Key = 28
	KeyZ         Key = 29
	KeyReturn    Key = 40
	KeyEscape    Key = 41
	KeyBackspace Key = 42
	KeyTab       Key = 43
	KeySpace     Key = 44
	KeyInsert    Key = 73
	KeyHome      Key = 74
	KeyPageUp    Key = 75
	KeyDelete    Key = 76
	KeyEnd       Key = 77
	KeyPageDown  Key = 78
	KeyRight     Key = 79
	KeyLeft      Key = 80
	KeyDown      Key = 81
	KeyUp        Key = 82
	KeyLCtrl     Key = 224
	KeyLShift    Key = 225
	KeyLAlt      Key = 226
	KeyLSuper    Key = 227
	KeyRCtrl     Key = 228
	KeyRShift    Key = 229
	KeyRAlt      Key = 230
	KeyRSuper    Key = 231
)

var keyNames = map[Key]string{
	KeyA:         "A",
	KeyC:         "C",
	KeyQ:         "Q",
	KeyV:         "V",
	KeyX:         "X",
	KeyY:         "Y",
	KeyZ:         "Z",
	KeyReturn:    "Return",
	KeyEscape:    "Escape",
	KeyBackspace: "Backspace",
	KeyTab:       "Tab",
	KeySpace:     "Space",
	KeyInsert:    "Insert",
	KeyHome:      "Home",
	KeyPageUp:    "PageUp",
	KeyDelete:    "Delete",
	KeyEnd:       "End",
	KeyPageDown:  "PageDown",
	KeyRight:     "Right",
	KeyLeft:      "Left",
	KeyDown:      "Down",
	KeyUp:        "Up",
	KeyLCtrl:     "LCtrl",
	KeyLShift:    "LShift",
	KeyLAlt:      "LAlt",
	KeyLSuper:    "LSuper",
	KeyRCtrl:     "RCtrl",
	KeyRShift:    "RShift",
	KeyRAlt:      "RAlt",
	KeyRSuper:    "RSuper",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// IsModifier reports whether k is one of the ctrl/shift/alt/super keys.
func (k Key) IsModifier() bool {
	return k >= KeyLCtrl && k <= KeyRSuper
}
