// Package streamable 实现带版本的对象与 raw dict（字符串键关联结构）之间的相互转换。
//
// 一个结构体类型通过 Register 注册为可流化类，注册时计算 C3 MRO，
// 从最近的可流化祖先继承 Streamer 与 Converter 的独立副本，并合并所有可流化祖先的版本。
// 序列化结果携带类名、模块名以及每个版本化类的版本：
//
//	{"class": "Circle", "__module": "shapes", "__versionedClasses": {"shapes.Shape": 2, "shapes.Circle": 3}, ...}
//
// 反序列化时可经由 Base 取回读到的版本，从而在 TreatObj 钩子里迁移旧数据。
// 只带单一 "__version" 的旧格式会把该版本应用到所有版本化类。
package streamable
