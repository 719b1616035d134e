package kernel

// MemoryPermission is the guest ABI permission word carried by shared
// memory requests.
type MemoryPermission uint32

const (
	PermNone             MemoryPermission = 0
	PermRead             MemoryPermission = 1
	PermWrite            MemoryPermission = 2
	PermReadWrite        MemoryPermission = PermRead | PermWrite
	PermExecute          MemoryPermission = 4
	PermReadExecute      MemoryPermission = PermRead | PermExecute
	PermWriteExecute     MemoryPermission = PermWrite | PermExecute
	PermReadWriteExecute MemoryPermission = PermRead | PermWrite | PermExecute

	// PermDontCare marks a map request that does not restate the grant
	// for other processes. Only freshly allocated objects accept it.
	PermDontCare MemoryPermission = 0x10000000
)

func (p MemoryPermission) String() string {
	if p == PermDontCare {
		return "dont-care"
	}
	b := [3]byte{'-', '-', '-'}
	if p&PermRead != 0 {
		b[0] = 'r'
	}
	if p&PermWrite != 0 {
		b[1] = 'w'
	}
	if p&PermExecute != 0 {
		b[2] = 'x'
	}
	return string(b[:])
}

// VMPermission is the protection applied to an installed virtual range.
type VMPermission uint32

const (
	VMPermNone    VMPermission = 0
	VMPermRead    VMPermission = 1
	VMPermWrite   VMPermission = 2
	VMPermExecute VMPermission = 4
	VMPermAll     VMPermission = VMPermRead | VMPermWrite | VMPermExecute
)

func (p VMPermission) String() string {
	b := [3]byte{'-', '-', '-'}
	if p&VMPermRead != 0 {
		b[0] = 'r'
	}
	if p&VMPermWrite != 0 {
		b[1] = 'w'
	}
	if p&VMPermExecute != 0 {
		b[2] = 'x'
	}
	return string(b[:])
}

// vmPermissions masks a guest permission word down to the bits a mapped
// range can actually be protected with.
func vmPermissions(p MemoryPermission) VMPermission {
	return VMPermission(p & PermReadWriteExecute)
}
