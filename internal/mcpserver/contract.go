package mcpserver

// VenueFormat describes the venue document and the image payload rules for
// LLM consumers of the target tools.
const VenueFormat = `# Venue Format

A venue is a named, ordered list of targets stored as one JSON document.

` + "```" + `json
{
  "venue": "hall",
  "targets": [
    {
      "no": 1,
      "title": "Entrance",
      "lat": 35.6812,
      "lng": 139.7671,
      "image": "/images/hall/Entrance.png",
      "comments": "Look for the red door"
    }
  ]
}
` + "```" + `

## Rules

1. **Venue names** are single path segments: no ` + "`/`" + `, no ` + "`\\`" + `, no ` + "`..`" + `,
   and they must not start with a dot.
2. **` + "`no`" + `** identifies a target. It is assigned on creation and never reused,
   even after the highest-numbered target is deleted. Pass it only to overwrite.
3. **Titles** double as image file names. Characters not allowed in file names
   are replaced with ` + "`_`" + `. Two targets with the same title share one image file.
4. **Images** are required for new targets. Send a data URL
   (` + "`data:image/png;base64,...`" + `) as ` + "`image_data`" + ` or an http(s) ` + "`image_url`" + `.
   The file extension comes from the image subtype (` + "`png`, `jpeg`, `svg`" + `, ...).
   Updating a target without an image keeps its current one.
5. **Deleting** a target removes its image unless another target uses it.
`
