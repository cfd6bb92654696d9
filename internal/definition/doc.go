// Package definition loads instance definitions from YAML or JSON files.
//
//	id: demo
//	name: Demo
//	blocks:
//	  - type: example-block-01
//	    args: {internal_block_id: block1, default_input_text: hello}
//	  - type: example-block-02
//	    args: {internal_block_id: block2, default_input_text: hello}
//	lines:
//	  - {id: 1-2, from: block1, to: block2}
//
// LoadDir reads a whole directory, where the same document may also be the
// frontmatter of a markdown file whose body describes the flow.
package definition
