package wasm

// Hand-assembled Wasm binaries used by the tests. Each section is
// id, byte size, contents.

var wasmHeader = []byte{
	0x00, 0x61, 0x73, 0x6d, // Magic number: \0asm
	0x01, 0x00, 0x00, 0x00, // Version: 1
}

// One page of memory (65536 bytes), no maximum.
var memorySection = []byte{0x05, 0x03, 0x01, 0x00, 0x01}

func wasmBinary(sections ...[]byte) []byte {
	out := append([]byte{}, wasmHeader...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

// memoryOnlyWasm exports one page of memory and nothing else.
var memoryOnlyWasm = wasmBinary(
	memorySection,
	[]byte{
		0x07, 0x0a, 0x01,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	},
)

// startWasm exports memory and an empty _start.
var startWasm = wasmBinary(
	// type 0: () -> ()
	[]byte{0x01, 0x04, 0x01, 0x60, 0x00, 0x00},
	// func 0: type 0
	[]byte{0x03, 0x02, 0x01, 0x00},
	memorySection,
	[]byte{
		0x07, 0x13, 0x02,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x00,
	},
	// body: end
	[]byte{0x0a, 0x04, 0x01, 0x02, 0x00, 0x0b},
)

// deliverWasm imports pnbridge.receive_result and exports
// deliver(ptr i32) f64 which forwards to it.
var deliverWasm = wasmBinary(
	// type 0: (i32) -> f64
	[]byte{0x01, 0x06, 0x01, 0x60, 0x01, 0x7f, 0x01, 0x7c},
	// import func 0: pnbridge.receive_result, type 0
	[]byte{
		0x02, 0x1b, 0x01,
		0x08, 'p', 'n', 'b', 'r', 'i', 'd', 'g', 'e',
		0x0e, 'r', 'e', 'c', 'e', 'i', 'v', 'e', '_', 'r', 'e', 's', 'u', 'l', 't',
		0x00, 0x00,
	},
	// func 1: type 0
	[]byte{0x03, 0x02, 0x01, 0x00},
	memorySection,
	[]byte{
		0x07, 0x14, 0x02,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x07, 'd', 'e', 'l', 'i', 'v', 'e', 'r', 0x00, 0x01,
	},
	// body: local.get 0; call 0; end
	[]byte{0x0a, 0x08, 0x01, 0x06, 0x00, 0x20, 0x00, 0x10, 0x00, 0x0b},
)

// bogusImportWasm imports a pnbridge function that does not exist.
var bogusImportWasm = wasmBinary(
	[]byte{0x01, 0x06, 0x01, 0x60, 0x01, 0x7f, 0x01, 0x7c},
	[]byte{
		0x02, 0x12, 0x01,
		0x08, 'p', 'n', 'b', 'r', 'i', 'd', 'g', 'e',
		0x05, 'b', 'o', 'g', 'u', 's',
		0x00, 0x00,
	},
	memorySection,
	[]byte{
		0x07, 0x0a, 0x01,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	},
)

// emptyWasm is a valid module without memory.
var emptyWasm = wasmBinary()

// fourPageWasm exports four pages of memory, room for the result, argument
// and reply regions side by side.
var fourPageWasm = wasmBinary(
	[]byte{0x05, 0x03, 0x01, 0x00, 0x04},
	[]byte{
		0x07, 0x0a, 0x01,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	},
)
