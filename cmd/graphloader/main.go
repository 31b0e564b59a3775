// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

// Command graphloader generates a property graph in two phases (vertices,
// then edges) and writes it through a configurable encoder and output.
//
// Settings come from, in increasing precedence: built-in defaults, a config
// file (--config), GRAPHLOADER_* environment variables, command line flags
// and --set key=value overrides.
package main

import (
	"os"
)

func main() {
	root := newRootCommand()
	root.AddCommand(newRunCommand(), newVersionCommand())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
