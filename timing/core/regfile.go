package core

// RegisterFile is the timing core's tagged architectural register file: 32
// registers, each holding a value and an outstanding-ROB-id tag (0 means
// "architecturally valid, read value directly").
//
// Two write ports feed it each cycle: the ROB's commit write and the
// Decoder's rename write. Both may target the same register in the same
// cycle; §4.4 fixes the order as commit-then-rename so a freshly dispatched
// instruction's rename always wins over a same-cycle commit to the same
// register.
type RegisterFile struct {
	value [32]uint32
	tag   [32]RobID

	output [32]RegFileEntry
}

// NewRegisterFile creates a RegisterFile with all registers zeroed and
// untagged.
func NewRegisterFile() *RegisterFile {
	return &RegisterFile{}
}

// Output returns this cycle's registered (tag, value) pairs, one per
// architectural register.
func (rf *RegisterFile) Output() [32]RegFileEntry {
	return rf.output
}

func (rf *RegisterFile) work(flush bool, commit RegCommitWrite, rename RegRename) {
	if flush {
		rf.tag = [32]RobID{}
		rf.publish()
		return
	}

	if commit.Enabled {
		rf.value[commit.RegID] = commit.Data
		if rf.tag[commit.RegID] == commit.RobID {
			rf.tag[commit.RegID] = robIDNone
		}
	}

	if rename.Enabled {
		rf.tag[rename.RegID] = rename.RobID
	}

	rf.tag[0] = robIDNone
	rf.value[0] = 0

	rf.publish()
}

// publish copies the live internal arrays into the registered output. A
// self-assignment of the output to itself here would never surface an
// update to the Decoder; the corrected form is what every reader depends on.
func (rf *RegisterFile) publish() {
	for i := 0; i < 32; i++ {
		rf.output[i] = RegFileEntry{Tag: rf.tag[i], Value: rf.value[i]}
	}
}
