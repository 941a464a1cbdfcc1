// Package histofile reads JVM class histogram dumps as produced by
// "jmap -histo" or "jcmd <pid> GC.class_histogram" from disk.
package histofile
