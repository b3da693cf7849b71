package mcpserver

// ExtentFormatContract describes the JSON form of an extent that tools
// accepting an "extent" argument expect.
const ExtentFormatContract = `# Anchorage Extent Format

An extent names the part of a node an anchor refers to. Tools that take an
` + "`" + `extent` + "`" + ` argument expect a JSON string in one of three forms.

## Whole node

Omit the argument, pass an empty string or pass ` + "`" + `null` + "`" + `.

## Text range

` + "```" + `json
{"type": "text", "startCharacter": 4, "endCharacter": 9, "text": "quick"}
` + "```" + `

- ` + "`" + `startCharacter` + "`" + ` and ` + "`" + `endCharacter` + "`" + ` are required, with 0 <= start <= end.
- ` + "`" + `text` + "`" + ` is informative. Two text extents with the same offsets are
  the same extent even when their text differs.

## Image region

` + "```" + `json
{"type": "image", "top": 10, "left": 20, "width": 100, "height": 50}
` + "```" + `

- All four fields are required. Width and height must not be negative.

## Rules

1. A node holds at most one anchor per extent. Linking to an extent that
   already has an anchor reuses it.
2. An extent cannot be linked to itself on the same node.
3. Deleting the last link of an anchor deletes the anchor.
`
