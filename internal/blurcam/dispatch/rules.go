package dispatch

import (
	"github.com/autopeer-io/blurcam/internal/blurcam/command"
	"github.com/autopeer-io/blurcam/internal/blurcam/slot"
)

// Rule gates one slot-occupying command: it starts in Slot only if Slot and
// every slot in Requires are empty.
type Rule struct {
	Command  command.Name
	Slot     slot.ID
	Requires []slot.ID
}

// Rules is the gating table, in wire order.
var Rules = []Rule{
	{command.TakePicture, slot.TakePicture, []slot.ID{slot.TakePicture, slot.ImageProcess, slot.SetOptions, slot.GetOptions}},
	{command.SetOptions, slot.SetOptions, []slot.ID{slot.TakePicture, slot.ImageProcess, slot.SetOptions}},
	{command.GetOptions, slot.GetOptions, []slot.ID{slot.TakePicture, slot.ImageProcess, slot.GetOptions}},
	{command.CheckImageStatus, slot.CheckImageStatus, []slot.ID{slot.TakePicture, slot.ImageProcess, slot.GetOptions}},
	{command.UploadImage, slot.ImageUpload, []slot.ID{slot.TakePicture, slot.ImageProcess, slot.GetOptions, slot.ImageUpload}},
}

// shutterRule gates a shutter press. It ignores the option slots.
var shutterRule = Rule{"shutter", slot.TakePicture, []slot.ID{slot.TakePicture, slot.ImageProcess}}

var rulesByName = func() map[command.Name]Rule {
	m := make(map[command.Name]Rule, len(Rules))
	for _, r := range Rules {
		m[r.Command] = r
	}
	return m
}()

// RuleFor returns the gating rule of name, if it has one.
func RuleFor(name command.Name) (Rule, bool) {
	r, ok := rulesByName[name]
	return r, ok
}
