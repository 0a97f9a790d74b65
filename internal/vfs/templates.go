package vfs

import (
	"fmt"

	"github.com/GriffinCanCode/sandboxfs/internal/escape"
)

// Operation bodies executed inside the target context. Every value that
// originates outside the target crosses as an escaped single-quoted
// literal; nothing is ever spliced in raw.

func listBody(p string) string {
	return fmt.Sprintf(`return __sfs.list(%s);`, escape.Quote(p))
}

// readBody substitutes the sentinel inside the target so binary bytes
// never cross the bridge on a plain read.
func readBody(p string) string {
	return fmt.Sprintf(`var info = __sfs.readMeta(%s, false);
if (info.isBase64 || info.isLargeText) {
  return %s + ' ' + info.mimeType + ', ' + info.size + ' bytes';
}
return info.content;`, escape.Quote(p), escape.Quote(BinarySentinelPrefix))
}

func readMetaBody(p string, forceText bool) string {
	return fmt.Sprintf(`return __sfs.readMeta(%s, %t);`, escape.Quote(p), forceText)
}

func writeTextBody(p, content string) string {
	return fmt.Sprintf(`__sfs.writeText(%s, %s);
return null;`, escape.Quote(p), escape.Quote(content))
}

// writeBinaryBody reassembles a staged base64 payload from its chunk
// slots, writes it, and releases the slots. A missing chunk aborts the
// write before any bytes land.
func writeBinaryBody(p, key string, chunkCount int) string {
	return fmt.Sprintf(`var parts = [];
for (var i = 0; i < %d; i++) {
  var chunk = __sfschunks[%s + '_' + i];
  if (chunk === undefined) { throw new Error('staged chunk ' + i + ' is missing'); }
  parts.push(chunk);
}
__sfs.writeBinary(%s, parts.join(''));
for (var i = 0; i < %d; i++) { delete __sfschunks[%s + '_' + i]; }
return null;`, chunkCount, escape.Quote(key), escape.Quote(p), chunkCount, escape.Quote(key))
}

func renameBody(p, newName string) string {
	return fmt.Sprintf(`__sfs.rename(%s, %s);
return null;`, escape.Quote(p), escape.Quote(newName))
}

func moveBody(src, dst string) string {
	return fmt.Sprintf(`__sfs.move(%s, %s);
return null;`, escape.Quote(src), escape.Quote(dst))
}

func createBody(p, kind string) string {
	return fmt.Sprintf(`__sfs.create(%s, %s);
return null;`, escape.Quote(p), escape.Quote(kind))
}

func deleteBody(p string) string {
	return fmt.Sprintf(`__sfs.remove(%s);
return null;`, escape.Quote(p))
}

func existsBody(p string) string {
	return fmt.Sprintf(`return __sfs.exists(%s);`, escape.Quote(p))
}

func estimateBody() string {
	return `return __sfs.estimate();`
}

func downloadBody(p string) string {
	return fmt.Sprintf(`__sfs.download(%s);
return null;`, escape.Quote(p))
}
