/*
Package gclplugin provides golangci-lint plugin integration for the vigil analyzer.

# Usage

1. Add a file `.custom-gcl.yaml` to your source with:

	---
	version: v2.7.0

	name: golangci-lint
	destination: .

	plugins:
	  - module: github.com/panbanda/vigil
	    import: github.com/panbanda/vigil/gclplugin
	    version: v0.1.0

2. Run `golangci-lint custom` from your project root.

3. Configure the linter in `.golangci.yaml`:

	---
	version: "2"
	linters:
	  default: none
	  enable:
	    - vigil
	  settings:
	    custom:
	      vigil:
	        type: module
	        description: "vigil runs complexity, duplication and path-sensitive rules."
	        settings:
	          config: vigil.toml
	          rules:
	            - nil-dereference
	            - cognitive-complexity

4. Run the linter:

	./golangci-lint run .
*/
package gclplugin
