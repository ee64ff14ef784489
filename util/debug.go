// Copyright 2022 The Armored Witness OS authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"bytes"
	"debug/elf"
	"debug/gosym"
	"errors"
	"fmt"
)

func goSymTable(buf []byte) (symTable *gosym.Table, err error) {
	exe, err := elf.NewFile(bytes.NewReader(buf))

	if err != nil {
		return
	}

	text := exe.Section(".text")
	pclntab := exe.Section(".gopclntab")
	symtab := exe.Section(".gosymtab")

	if text == nil || pclntab == nil || symtab == nil {
		return nil, errors.New("missing Go symbol sections")
	}

	lineTableData, err := pclntab.Data()

	if err != nil {
		return
	}

	lineTable := gosym.NewLineTable(lineTableData, text.Addr)

	symTableData, err := symtab.Data()

	if err != nil {
		return
	}

	return gosym.NewTable(symTableData, lineTable)
}

// PCToLine resolves a program counter to a source line using the Go line
// table of an ELF executable.
func PCToLine(buf []byte, pc uint64) (s string, err error) {
	symTable, err := goSymTable(buf)

	if err != nil {
		return
	}

	file, line, fn := symTable.PCToLine(pc)

	if fn == nil {
		return "", fmt.Errorf("no symbol for pc %#x", pc)
	}

	return fmt.Sprintf("%s:%d", file, line), nil
}
